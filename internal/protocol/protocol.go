// Package protocol implements the line-oriented wire protocol spoken by the
// transcription worker process.
//
// The worker reads commands on stdin (one per line) and writes events on
// stdout. Events are classified by prefix:
//
//	EVENT: READY            worker is usable
//	EVENT: ERROR            model failed to load
//	EVENT: MODEL_NOT_READY  a start arrived before the model finished loading
//	EVENT: RELEASE          hold-mode capture ended (final text may still follow)
//	PARTIAL: <text>         in-progress transcript snapshot
//	<text>                  any other non-empty line is the final transcript
package protocol

import (
	"bytes"
	"strings"
)

// EventKind identifies a decoded worker event.
type EventKind int

const (
	// KindReady signals the worker loaded its model and accepts commands.
	KindReady EventKind = iota
	// KindLoadError signals the worker failed to initialize.
	KindLoadError
	// KindModelNotReady signals a start was attempted before the model loaded.
	KindModelNotReady
	// KindRelease signals the current capture ended (hold-key released).
	KindRelease
	// KindPartial carries an in-progress transcript snapshot.
	KindPartial
	// KindFinal carries the authoritative transcript for the turn.
	KindFinal
)

// String returns the kind name for logging.
func (k EventKind) String() string {
	switch k {
	case KindReady:
		return "ready"
	case KindLoadError:
		return "load_error"
	case KindModelNotReady:
		return "model_not_ready"
	case KindRelease:
		return "release"
	case KindPartial:
		return "partial"
	case KindFinal:
		return "final"
	default:
		return "unknown"
	}
}

// Event is a decoded worker event. Text is set for KindPartial and KindFinal.
type Event struct {
	Kind EventKind
	Text string
}

const (
	eventReady         = "EVENT: READY"
	eventError         = "EVENT: ERROR"
	eventModelNotReady = "EVENT: MODEL_NOT_READY"
	eventRelease       = "EVENT: RELEASE"
	partialPrefix      = "PARTIAL:"
)

// Parser accumulates raw chunks from the worker's stdout and yields complete
// events. Chunk boundaries carry no meaning: a message may arrive split across
// any number of reads, and one read may carry many messages.
type Parser struct {
	rem []byte // trailing bytes of an incomplete line
}

// Feed consumes one chunk and returns the events completed by it, in order.
// Incomplete trailing data is buffered for the next call.
func (p *Parser) Feed(chunk []byte) []Event {
	data := chunk
	if len(p.rem) > 0 {
		data = append(p.rem, chunk...)
	}

	var events []Event
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		if ev, ok := classify(string(data[:i])); ok {
			events = append(events, ev)
		}
		data = data[i+1:]
	}

	p.rem = append([]byte(nil), data...)
	return events
}

// Pending reports whether an incomplete line is buffered.
func (p *Parser) Pending() bool {
	return len(p.rem) > 0
}

// classify maps one complete line to an event. Blank lines are discarded
// rather than treated as an empty final transcript.
func classify(line string) (Event, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Event{}, false
	}

	switch line {
	case eventReady:
		return Event{Kind: KindReady}, true
	case eventError:
		return Event{Kind: KindLoadError}, true
	case eventModelNotReady:
		return Event{Kind: KindModelNotReady}, true
	case eventRelease:
		return Event{Kind: KindRelease}, true
	}

	if rest, ok := strings.CutPrefix(line, partialPrefix); ok {
		text := strings.TrimSpace(rest)
		if text == "" {
			return Event{}, false
		}
		return Event{Kind: KindPartial, Text: text}, true
	}

	return Event{Kind: KindFinal, Text: line}, true
}
