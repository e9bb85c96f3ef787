package handler

import (
    "errors"
    "fmt"
    "net/http"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"
)

// internalError is the only body a client sees for an unexpected fault.
var internalError = echo.Map{"error": "internal_server_error", "message": "internal server error"}

// ErrorHandler is installed as echo.Echo.HTTPErrorHandler.  Client errors
// raised as *echo.HTTPError keep their code and message; every other error
// becomes a generic 500 and is logged in full.
func ErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
    return func(err error, c echo.Context) {
        if c.Response().Committed {
            return
        }

        code := http.StatusInternalServerError
        body := internalError

        var he *echo.HTTPError
        if errors.As(err, &he) && he.Code < http.StatusInternalServerError {
            code = he.Code
            body = echo.Map{"error": http.StatusText(code), "message": messageOf(he)}
        } else {
            logger.Error("unhandled error",
                zap.String("method", c.Request().Method),
                zap.String("uri", c.Request().RequestURI),
                zap.Error(err))
        }

        var werr error
        if c.Request().Method == http.MethodHead {
            werr = c.NoContent(code)
        } else {
            werr = c.JSON(code, body)
        }
        if werr != nil {
            logger.Error("writing error response", zap.Error(werr))
        }
    }
}

func messageOf(he *echo.HTTPError) string {
    if s, ok := he.Message.(string); ok {
        return s
    }
    return fmt.Sprint(he.Message)
}
