package chat

import (
	"net/http"

	"codeberg.org/guideelbac/server/internal/agent"
	"codeberg.org/guideelbac/server/internal/stream"
	"github.com/gin-gonic/gin"
)

// responder picks the response format on the first event: a token commits
// to an event stream, a complete answer goes out as plain JSON
type responder struct {
	c         *gin.Context
	streaming bool
	answered  bool
}

func (r *responder) emit(ev agent.Event) error {
	if err := r.c.Request.Context().Err(); err != nil {
		return err
	}

	switch ev.Kind {
	case agent.EventToken:
		return r.write(stream.Payload{Content: ev.Text})

	case agent.EventFallback:
		if !r.streaming {
			r.c.JSON(http.StatusOK, AnswerResponse{Answer: ev.Text})
			r.answered = true
			return nil
		}

		return r.write(stream.Payload{Content: ev.Text, Replace: ev.Replace})

	case agent.EventDone:
		if r.answered {
			return nil
		}

		r.start()
		if err := stream.WriteDone(r.c.Writer); err != nil {
			return err
		}

		r.c.Writer.Flush()
	}

	return nil
}

func (r *responder) write(p stream.Payload) error {
	r.start()

	if err := stream.WriteContent(r.c.Writer, p); err != nil {
		return err
	}

	r.c.Writer.Flush()
	return nil
}

func (r *responder) start() {
	if r.streaming {
		return
	}

	h := r.c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	r.c.Status(http.StatusOK)
	r.c.Writer.WriteHeaderNow()
	r.streaming = true
}
