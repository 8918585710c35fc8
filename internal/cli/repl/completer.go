package repl

import (
	"sort"
	"strings"
)

// Completer suggests command names for a prefix.
type Completer struct {
	commands []string
}

// NewCompleter creates a Completer over the server commands and REPL built-ins.
func NewCompleter() *Completer {
	commands := []string{
		"PING", "ECHO", "SET", "GET", "INCR", "DECR", "EXISTS", "DEL",
		"TTL", "PTTL", "EXPIRE", "PERSIST", "DBSIZE", "KEYS",
		"LPUSH", "RPUSH", "LRANGE", "SAVE", "QUIT",
		"help", "history", "exit",
	}
	sort.Strings(commands)
	return &Completer{commands: commands}
}

// Complete returns the commands starting with prefix, ignoring case.
func (c *Completer) Complete(prefix string) []string {
	var suggestions []string
	for _, cmd := range c.commands {
		if len(cmd) >= len(prefix) && strings.EqualFold(cmd[:len(prefix)], prefix) {
			suggestions = append(suggestions, cmd)
		}
	}
	return suggestions
}
