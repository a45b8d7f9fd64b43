package echoportal

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/NVK2907/sms-app-sub000/core"
)

// newRateLimiter throttles a route per client IP. `formatted` follows the limiter
// format, eg. "10-M" for 10 requests per minute.
func newRateLimiter(formatted string) (echo.MiddlewareFunc, error) {
	if formatted == "" {
		formatted = core.Conf.Portal.LoginRate
	}
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing rate %q", formatted)
	}
	lim := limiter.New(memory.NewStore(), rate)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			key := ctx.Path() + "|" + ctx.RealIP()
			res, err := lim.Get(ctx.Request().Context(), key)
			if err != nil {
				return errors.Wrap(err, "checking rate limit")
			}
			h := ctx.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.FormatInt(res.Limit, 10))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(res.Reset, 10))
			if res.Reached {
				return errTooManyRequests
			}
			return next(ctx)
		}
	}, nil
}
