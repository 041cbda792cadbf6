// Command zplay runs a V3 story file headlessly against a script of
// newline-separated commands, printing the transcript to stdout. It is
// useful for smoke-testing a story or a save file without a terminal.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/nkessler/zmach3/zmachine"
)

// scriptedHost feeds zmachine.Host.Read from a preloaded list of commands
// and writes everything Print receives straight to an output writer; once
// the script is exhausted, Read returns "quit" so a waiting story doesn't
// hang forever.
type scriptedHost struct {
	out      *bufio.Writer
	commands []string
	savePath string
}

func (h *scriptedHost) Print(text string, scripting bool) {
	h.out.WriteString(text)
}

func (h *scriptedHost) Read(maxLen int) string {
	if len(h.commands) == 0 {
		return "quit"
	}
	line := h.commands[0]
	h.commands = h.commands[1:]
	if len(line) > maxLen {
		line = line[:maxLen]
	}
	fmt.Fprintf(h.out, "\n> %s\n", line)
	return line
}

func (h *scriptedHost) Highlight(fixedPitch bool) {}

func (h *scriptedHost) Save(blob []byte) bool {
	if h.savePath == "" {
		return false
	}
	return os.WriteFile(h.savePath, blob, 0644) == nil
}

func (h *scriptedHost) Restore() ([]byte, bool) {
	if h.savePath == "" {
		return nil, false
	}
	data, err := os.ReadFile(h.savePath)
	if err != nil {
		return nil, false
	}
	return data, true
}

func (h *scriptedHost) Status(text string, v18, v17 int16) {
	fmt.Fprintf(h.out, "\n[%s | %d | %d]\n", text, v18, v17)
}

func main() {
	romPath := flag.String("rom", "", "Path to a V3 story file")
	scriptPath := flag.String("script", "", "Path to a newline-separated command script")
	savePath := flag.String("save", "", "Path used for SAVE/RESTORE opcodes")
	flag.Parse()

	if *romPath == "" {
		fmt.Println("usage: zplay -rom game.z3 [-script commands.txt] [-save game.sav]")
		os.Exit(1)
	}

	romBytes, err := os.ReadFile(*romPath)
	if err != nil {
		fmt.Printf("failed to read rom: %v\n", err)
		os.Exit(1)
	}

	var commands []string
	if *scriptPath != "" {
		scriptBytes, err := os.ReadFile(*scriptPath)
		if err != nil {
			fmt.Printf("failed to read script: %v\n", err)
			os.Exit(1)
		}
		for _, line := range strings.Split(string(scriptBytes), "\n") {
			line = strings.TrimRight(line, "\r")
			if line != "" {
				commands = append(commands, line)
			}
		}
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	host := &scriptedHost{out: out, commands: commands, savePath: *savePath}
	z, err := zmachine.Load(romBytes, host)
	if err != nil {
		fmt.Printf("failed to load story: %v\n", err)
		os.Exit(1)
	}

	if err := z.Run(); err != nil {
		out.Flush()
		fmt.Printf("runtime error: %v\n", err)
		os.Exit(1)
	}
}
