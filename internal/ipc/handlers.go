package ipc

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/matjam/smoothtile"
	"github.com/spf13/viper"
)

// GET /status
func statusHandler(m ManagerInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSONPretty(http.StatusOK, StatusResponse{
			Status:  "ok",
			Message: "smoothtile is running",
			Version: strings.Trim(smoothtile.Version, "\n\r "),
			PID:     os.Getpid(),
			Socket:  SocketPath(),
			Config:  viper.ConfigFileUsed(),
			Item:    viper.GetString("item"),
			Viewer:  m.Status(),
		}, "  ")
	}
}

// POST /stop
func stopHandler(m ManagerInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := m.EnqueueCommand(Command{Type: CommandStop}); err != nil {
			return c.JSON(http.StatusServiceUnavailable, Response{Status: "error", Message: err.Error()})
		}
		return c.JSON(http.StatusOK, Response{Status: "ok"})
	}
}

// POST /frame
func frameHandler(m ManagerInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req FrameRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, Response{Status: "error", Message: "invalid frame request"})
		}

		frames := m.Metadata().NumFrames()
		if req.Frame < 0 || req.Frame >= frames {
			return c.JSON(http.StatusBadRequest, Response{
				Status:  "error",
				Message: fmt.Sprintf("frame %d out of range [0, %d)", req.Frame, frames),
			})
		}

		if err := m.EnqueueCommand(Command{Type: CommandFrame, Frame: req.Frame, Style: req.Style}); err != nil {
			return c.JSON(http.StatusServiceUnavailable, Response{Status: "error", Message: err.Error()})
		}
		return c.JSON(http.StatusOK, Response{Status: "ok", Data: req})
	}
}
