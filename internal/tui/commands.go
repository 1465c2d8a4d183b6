package tui

import "strings"

// Command is a parsed slash command such as "/rename Budget".
type Command struct {
	Name string // without the leading slash, lower-cased
	Arg  string // the rest of the line, trimmed
}

const helpText = `Commands:
  /new              start a new session
  /rename <title>   rename the current session
  /delete           delete the current session
  /clear            remove every message from the current session
  /switch <n|id>    switch to session n (as in /list) or by id
  /list             list sessions
  /attach <path>    attach an image to the next message
  /help             show this help
  /quit             exit`

var knownCommands = map[string]bool{
	"new": true, "rename": true, "delete": true, "clear": true, "switch": true,
	"list": true, "attach": true, "help": true, "quit": true,
}

// ParseCommand reports whether line is a slash command and splits it. Lines
// that do not start with "/" are chat input. An unknown name is still
// returned as a command so the caller can report it.
func ParseCommand(line string) (Command, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") || len(line) == 1 {
		return Command{}, false
	}
	name, arg, _ := strings.Cut(line[1:], " ")
	return Command{Name: strings.ToLower(name), Arg: strings.TrimSpace(arg)}, true
}

// Known reports whether c names a supported command.
func (c Command) Known() bool { return knownCommands[c.Name] }

// needsConfirm reports whether c destroys data and must be confirmed first.
func (c Command) needsConfirm() bool {
	return c.Name == "delete" || c.Name == "clear"
}
