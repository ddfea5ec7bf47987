package a3interface

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/OCAP2/siegelimit/internal/dispatcher"
)

const timestampCommand = ":TIMESTAMP:"

// respond runs one host call and returns the text written back.
// Plain calls may carry data after a "|"; the part before it selects the
// handler when the full string has none, and the full string is passed as
// the only argument.
func respond(d *dispatcher.Dispatcher, command string, args []string, plain bool) string {
	if plain && command == timestampCommand {
		return strconv.FormatInt(time.Now().UTC().UnixNano(), 10)
	}
	if d == nil {
		return noHandlerResponse(command)
	}

	target := command
	if plain {
		if prefix, _, found := strings.Cut(command, "|"); found && !d.HasHandler(command) {
			target = prefix
		}
		args = []string{command}
	}
	if !d.HasHandler(target) {
		return noHandlerResponse(command)
	}

	result, err := d.Dispatch(dispatcher.Event{
		Command:   target,
		Args:      args,
		Timestamp: time.Now(),
	})
	return formatDispatchResponse(result, err)
}

// formatDispatchResponse formats the dispatcher result for the host:
// ["ok"], ["ok", <value>] or ["error", "<message>"].
// Strings are SQF-quoted; everything else is encoded as JSON.
func formatDispatchResponse(result any, err error) string {
	if err != nil {
		return fmt.Sprintf(`["error", %s]`, sqfString(err.Error()))
	}
	if result == nil {
		return `["ok"]`
	}
	if str, ok := result.(string); ok {
		return fmt.Sprintf(`["ok", %s]`, sqfString(str))
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(result); err != nil {
		return fmt.Sprintf(`["error", %s]`, sqfString(err.Error()))
	}
	return fmt.Sprintf(`["ok", %s]`, strings.TrimSuffix(buf.String(), "\n"))
}

func noHandlerResponse(command string) string {
	return fmt.Sprintf(`["error", %s]`, sqfString("no handler registered for "+command))
}

// sqfString quotes s as an SQF string literal; embedded quotes are doubled.
func sqfString(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
