package stream

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// DoneData is the payload of the frame that closes every answer stream
const DoneData = "[DONE]"

// Payload is the JSON body of one answer frame
type Payload struct {
	Content string `json:"content"`

	// set when Content supersedes everything streamed before it
	Replace bool `json:"replace,omitempty"`
}

// Event is one server-sent event
type Event struct {
	Name string
	Data string
}

func (e Event) Done() bool {
	return e.Data == DoneData
}

// decodes the JSON payload of a content frame
func (e Event) Payload() (Payload, error) {
	var p Payload
	if err := json.Unmarshal([]byte(e.Data), &p); err != nil {
		return Payload{}, fmt.Errorf("failed to decode frame: %w", err)
	}

	return p, nil
}

// writes one `data: {...}` frame for a token
func WriteContent(w io.Writer, p Payload) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}

	return writeFrame(w, "", string(data))
}

// writes the terminal `data: [DONE]` frame
func WriteDone(w io.Writer) error {
	return writeFrame(w, "", DoneData)
}

func writeFrame(w io.Writer, event, data string) error {
	var b strings.Builder

	if event != "" {
		b.WriteString("event: ")
		b.WriteString(event)
		b.WriteByte('\n')
	}

	for _, line := range strings.Split(data, "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteByte('\n')
	}

	b.WriteByte('\n')

	_, err := io.WriteString(w, b.String())
	return err
}

// Read parses server-sent events from r and hands each one to onEvent.
// Returning ErrStop from onEvent ends reading without error.
func Read(r io.Reader, onEvent func(Event) error) error {
	br := bufio.NewReader(r)

	var (
		name      string
		dataLines []string
	)

	flush := func() error {
		if len(dataLines) == 0 {
			name = ""
			return nil
		}

		ev := Event{Name: name, Data: strings.Join(dataLines, "\n")}
		name = ""
		dataLines = nil

		return onEvent(ev)
	}

	for {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}

		eof := err != nil
		line = strings.TrimRight(line, "\r\n")

		switch {
		case line == "":
			if ferr := flush(); ferr != nil {
				return stopped(ferr)
			}
		case strings.HasPrefix(line, ":"):
			// comment
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			// only the single optional space after the colon is stripped
			data := strings.TrimPrefix(line, "data:")
			dataLines = append(dataLines, strings.TrimPrefix(data, " "))
		}

		if eof {
			return stopped(flush())
		}
	}
}

// ErrStop ends Read early without reporting an error
var ErrStop = errors.New("stop reading")

func stopped(err error) error {
	if errors.Is(err, ErrStop) {
		return nil
	}

	return err
}
