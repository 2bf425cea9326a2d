package controller

import (
	"fmt"
	"time"
)

func (c controller) generateTimeBasedId() string {
	return fmt.Sprintf("%d", time.Now().UnixMicro())
}
