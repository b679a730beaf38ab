package auth

import (
	"bufio"
	"net"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// sessionResponseWriter wraps gin.ResponseWriter to write the session
// cookie before headers are sent.
type sessionResponseWriter struct {
	gin.ResponseWriter
	store         *SessionStore
	session       *Session
	wroteHeader   bool
	cookieWritten bool
}

func (w *sessionResponseWriter) WriteHeader(code int) {
	w.beforeHeader()
	w.ResponseWriter.WriteHeader(code)
}

func (w *sessionResponseWriter) WriteHeaderNow() {
	w.beforeHeader()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *sessionResponseWriter) Write(b []byte) (int, error) {
	w.beforeHeader()
	return w.ResponseWriter.Write(b)
}

func (w *sessionResponseWriter) WriteString(s string) (int, error) {
	w.beforeHeader()
	return w.ResponseWriter.WriteString(s)
}

func (w *sessionResponseWriter) beforeHeader() {
	if !w.wroteHeader {
		w.wroteHeader = true
		w.writeSessionCookie()
	}
}

func (w *sessionResponseWriter) writeSessionCookie() {
	if w.cookieWritten || !w.session.Modified() {
		return
	}
	w.cookieWritten = true

	if err := w.store.Save(w.ResponseWriter, w.session); err != nil {
		log.Error().Err(err).Msg("Failed to write session cookie")
	}
}

// Implement http.Hijacker for WebSocket support
func (w *sessionResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return w.ResponseWriter.Hijack()
}

// Middleware decodes the session cookie into the gin context and re-issues
// it on the response when a handler changed the session.
func (s *SessionStore) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := s.Load(c.Request)
		c.Set(ContextKeySession, session)

		srw := &sessionResponseWriter{
			ResponseWriter: c.Writer,
			store:          s,
			session:        session,
		}
		c.Writer = srw

		c.Next()

		// Ensure session cookie is written even if no response body
		if !srw.wroteHeader {
			srw.writeSessionCookie()
		}
	}
}
