package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"go.lsp.dev/protocol"
)

// LSPWriter is a zerolog output that forwards every line to the editor as a
// window/logMessage notification. Until a client is attached, lines go to
// the fallback writer.
type LSPWriter struct {
	mu       sync.Mutex
	ctx      context.Context
	client   Client
	fallback io.Writer
}

func NewLSPWriter(ctx context.Context, fallback io.Writer) *LSPWriter {
	return &LSPWriter{ctx: ctx, fallback: fallback}
}

func (w *LSPWriter) SetClient(client Client) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.client = client
}

func (w *LSPWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	client := w.client
	w.mu.Unlock()

	if client == nil {
		if w.fallback == nil {
			return len(p), nil
		}
		return w.fallback.Write(p)
	}

	var entry map[string]any
	if err := json.Unmarshal(p, &entry); err != nil {
		// not one of ours, skip it
		return len(p), nil
	}

	params := &protocol.LogMessageParams{
		Type:    MessageTypeFromZerolog(entry),
		Message: FormatLogEntry(entry),
	}

	if err := client.Notify(w.ctx, protocol.MethodWindowLogMessage, params); err != nil {
		return 0, err
	}
	return len(p), nil
}

// MessageTypeFromZerolog maps the level of a zerolog entry to an LSP message
// type. Debug and trace both become log messages.
func MessageTypeFromZerolog(entry map[string]any) protocol.MessageType {
	str, _ := entry[zerolog.LevelFieldName].(string)
	level, err := zerolog.ParseLevel(str)
	if err != nil {
		return protocol.MessageTypeLog
	}
	switch level {
	case zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel:
		return protocol.MessageTypeError
	case zerolog.WarnLevel:
		return protocol.MessageTypeWarning
	case zerolog.InfoLevel:
		return protocol.MessageTypeInfo
	default:
		return protocol.MessageTypeLog
	}
}

// FormatLogEntry renders the message followed by the remaining fields as
// sorted key=value pairs.
func FormatLogEntry(entry map[string]any) string {
	msg, _ := entry[zerolog.MessageFieldName].(string)

	keys := make([]string, 0, len(entry))
	for k := range entry {
		switch k {
		case zerolog.MessageFieldName, zerolog.LevelFieldName, zerolog.TimestampFieldName:
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(msg)
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%v", k, entry[k])
	}
	return strings.TrimSpace(sb.String())
}
