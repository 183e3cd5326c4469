package handler

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"
)

// getDoctorID extracts the authenticated doctor id placed into the
// context by the JWT middleware and converts it to uint64.  JWT numeric
// claims decode as float64, but the value may also arrive as a string
// or an integer depending on how the token was minted.
func getDoctorID(c echo.Context) (uint64, error) {
	v := c.Get("doctor_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid doctor_id in context")
}
