package cli

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
)

// tokenURL is where users create a personal access token. No scopes are
// needed to read public releases and files.
const tokenURL = "https://github.com/settings/tokens/new?description=deputy"

// browse opens a URL in the user's browser.
var browse = openBrowser

// promptToken asks for a GitHub token on w and reads one line from in.
// An empty answer declines.
func promptToken(in io.Reader, w io.Writer) (string, error) {
	printNewline(w)
	fmt.Fprintln(w, StyleTitle.Render("GitHub Rate Limit Reached"))
	printDetail(w, "Anonymous requests are limited to 60 per hour.")
	printKeyValue(w, "Token", StyleLink.Render(tokenURL))
	if err := browse(tokenURL); err == nil {
		printDetail(w, "Opening browser...")
	}
	printInline(w, "Paste a token (empty to skip): ")

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read token: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func openBrowser(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return fmt.Errorf("URL scheme must be http or https, got %q", parsed.Scheme)
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", rawURL)
	case "linux":
		cmd = exec.Command("xdg-open", rawURL)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", rawURL)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	return cmd.Start()
}
