package httputil

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

// DefaultWindowHours is used when the "hours" query parameter is absent.
const DefaultWindowHours = 24

// ParseWindowHours reads the "hours" query parameter as an integer, defaulting
// to DefaultWindowHours. Range checks belong to the statistics use case.
func ParseWindowHours(c *gin.Context) (int, error) {
	hoursStr := c.DefaultQuery("hours", strconv.Itoa(DefaultWindowHours))
	hours, err := strconv.Atoi(hoursStr)
	if err != nil {
		return 0, fmt.Errorf("invalid hours parameter: %q is not an integer", hoursStr)
	}
	return hours, nil
}
