package callback

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/sarathss100/eve-client/internal/booking"
)

const landingPage = `<!DOCTYPE html>
<html>
<head><title>Eve</title></head>
<body style="font-family: sans-serif; text-align: center; padding-top: 4rem;">
<h2>Payment step complete</h2>
<p>You can close this tab and return to the terminal.</p>
</body>
</html>`

// Server is the local HTTP endpoint the payment provider redirects back to
// after the hosted checkout page. It stands in for the web client's root
// URL: it consumes the return query parameters exactly once and strips them
// with a redirect so a refresh cannot re-trigger reconciliation.
type Server struct {
	app     *fiber.App
	logger  *zap.Logger
	returns chan booking.ReturnParams
}

func NewServer(logger *zap.Logger) *Server {
	s := &Server{
		app: fiber.New(fiber.Config{
			DisableStartupMessage: true,
		}),
		logger:  logger.Named("callback"),
		returns: make(chan booking.ReturnParams, 1),
	}
	s.app.Get("/", s.handleReturn)
	return s
}

// Returns yields the redirect parameters, first delivery wins.
func (s *Server) Returns() <-chan booking.ReturnParams {
	return s.returns
}

// Listen serves until Shutdown. Blocking; run it in a goroutine.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) handleReturn(c *fiber.Ctx) error {
	sessionID := c.Query("session_id")
	eventID := c.Query("event_id")

	if sessionID == "" || eventID == "" {
		return c.Type("html").SendString(landingPage)
	}

	params := booking.ReturnParams{
		SessionID: sessionID,
		EventID:   eventID,
		Success:   c.Query("success") == "true",
	}

	select {
	case s.returns <- params:
		s.logger.Info("checkout return received",
			zap.String("event_id", eventID),
			zap.Bool("success", params.Success),
		)
	default:
		// Already delivered once; a refresh or duplicate redirect is a
		// no-op.
		s.logger.Debug("duplicate checkout return ignored", zap.String("event_id", eventID))
	}

	// Strip the query parameters from the address bar.
	return c.Redirect("/", fiber.StatusSeeOther)
}
