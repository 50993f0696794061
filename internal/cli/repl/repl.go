package repl

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"algotrack/internal/cli/command"
	httpclient "algotrack/internal/cli/http"
	"algotrack/internal/cli/state"
	pkgerrors "algotrack/pkg/errors"

	"github.com/google/shlex"
)

// Session holds REPL state.
type Session struct {
	client       *httpclient.Client
	commands     map[string]command.Command
	tokenState   *state.TokenState
	statePath    string
	prettyJSON   bool
	outputWriter *bufio.Writer
}

func New(client *httpclient.Client, commands map[string]command.Command, tokenState *state.TokenState, statePath string, prettyJSON bool) *Session {
	return &Session{
		client:       client,
		commands:     commands,
		tokenState:   tokenState,
		statePath:    statePath,
		prettyJSON:   prettyJSON,
		outputWriter: bufio.NewWriter(os.Stdout),
	}
}

func (s *Session) Run(ctx context.Context) {
	reader := bufio.NewReader(os.Stdin)
	for {
		_, _ = s.outputWriter.WriteString("algotrack> ")
		_ = s.outputWriter.Flush()
		line, err := reader.ReadString('\n')
		if err != nil {
			s.printLine("read input failed: %v", err)
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if s.handleSystemCommand(line) {
			continue
		}

		if err := s.handleCommand(ctx, reader, line); err != nil {
			s.printLine("error: %v", err)
		}
	}
}

func (s *Session) handleSystemCommand(line string) bool {
	switch line {
	case "exit", "quit":
		s.printLine("bye")
		os.Exit(0)
	case "help":
		s.printHelp()
		return true
	case "whoami":
		s.printWhoami()
		return true
	}
	if strings.HasPrefix(line, "set ") {
		s.handleSet(strings.TrimSpace(strings.TrimPrefix(line, "set ")))
		return true
	}
	if strings.HasPrefix(line, "show ") {
		s.handleShow(strings.TrimSpace(strings.TrimPrefix(line, "show ")))
		return true
	}
	return false
}

func (s *Session) handleSet(args string) {
	parts := strings.Fields(args)
	if len(parts) == 0 {
		s.printLine("usage: set base|token|timeout")
		return
	}
	switch parts[0] {
	case "base":
		if len(parts) < 2 {
			s.printLine("usage: set base http://127.0.0.1:8080")
			return
		}
		s.client.SetBaseURL(parts[1])
		s.printLine("base set to %s", parts[1])
	case "timeout":
		if len(parts) < 2 {
			s.printLine("usage: set timeout 10s")
			return
		}
		dur, err := time.ParseDuration(parts[1])
		if err != nil {
			s.printLine("invalid duration: %v", err)
			return
		}
		s.client.SetTimeout(dur)
		s.printLine("timeout set to %s", dur)
	case "token":
		if len(parts) < 2 {
			s.printLine("usage: set token <access_token>")
			return
		}
		s.tokenState.AccessToken = parts[1]
		if err := state.Save(s.statePath, *s.tokenState); err != nil {
			s.printLine("save token failed: %v", err)
			return
		}
		s.printLine("token updated")
	default:
		s.printLine("unknown set command")
	}
}

func (s *Session) handleShow(args string) {
	switch args {
	case "token":
		if s.tokenState.AccessToken == "" {
			s.printLine("token: <empty>")
			return
		}
		s.printLine("token: %s", maskToken(s.tokenState.AccessToken))
	case "config":
		s.printLine("tokenStatePath: %s", s.statePath)
	default:
		s.printLine("usage: show token|config")
	}
}

func (s *Session) printWhoami() {
	if s.tokenState.AccessToken == "" {
		s.printLine("not logged in")
		return
	}
	s.printLine("user: %s", s.tokenState.Username)
	s.printLine("access token: %s (expires %s)", maskToken(s.tokenState.AccessToken), s.tokenState.AccessExpiresAt.Format(time.RFC3339))
	if s.tokenState.RefreshToken != "" {
		s.printLine("refresh token: %s (expires %s)", maskToken(s.tokenState.RefreshToken), s.tokenState.RefreshExpiresAt.Format(time.RFC3339))
	}
}

func maskToken(token string) string {
	if len(token) > 12 {
		return token[:6] + "..." + token[len(token)-4:]
	}
	return token
}

func (s *Session) handleCommand(ctx context.Context, reader *bufio.Reader, line string) error {
	tokens, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("parse command failed: %w", err)
	}
	if len(tokens) < 2 {
		return fmt.Errorf("invalid command, use: <service> <action> key=value ...")
	}
	service := tokens[0]
	action := tokens[1]
	key := fmt.Sprintf("%s %s", service, action)
	cmd, ok := s.commands[key]
	if !ok {
		return fmt.Errorf("unknown command: %s %s", service, action)
	}
	params := command.Params{}
	for _, token := range tokens[2:] {
		parts := strings.SplitN(token, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid param: %s", token)
		}
		params.Set(parts[0], parts[1])
	}

	if err := s.promptMissing(reader, &cmd, params); err != nil {
		return err
	}
	req, err := command.BuildRequest(cmd, params)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(ctx, req.Method, req.Path, req.Headers, req.Body)
	if err != nil {
		return err
	}
	if cmd.Service == "problem" && cmd.Action == "export" {
		return s.saveExport(resp, params.Get("out"))
	}
	s.renderResponse(resp)
	s.updateTokenFromResponse(cmd, params, resp.Body)
	return nil
}

func (s *Session) saveExport(resp httpclient.ResponseInfo, outPath string) error {
	s.printLine("HTTP %d (%s)", resp.StatusCode, resp.Duration)
	if resp.StatusCode != 200 {
		s.renderResponse(resp)
		return nil
	}
	if outPath == "" {
		outPath = "problems.json.zst"
	}
	if err := os.WriteFile(outPath, resp.Body, 0o644); err != nil {
		return fmt.Errorf("write export failed: %w", err)
	}
	s.printLine("saved %d bytes to %s", len(resp.Body), outPath)
	return nil
}

func (s *Session) promptMissing(reader *bufio.Reader, cmd *command.Command, params command.Params) error {
	for _, field := range cmd.Fields {
		if !field.Required {
			continue
		}
		if params.Has(field.Name) && params.Get(field.Name) != "" {
			continue
		}
		value, err := s.promptValue(reader, field.Prompt)
		if err != nil {
			return err
		}
		params.Set(field.Name, value)
	}
	return nil
}

func (s *Session) promptValue(reader *bufio.Reader, prompt string) (string, error) {
	s.printLine("%s:", prompt)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read input failed: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func (s *Session) renderResponse(resp httpclient.ResponseInfo) {
	s.printLine("HTTP %d (%s)", resp.StatusCode, resp.Duration)
	if len(resp.Body) == 0 {
		return
	}
	if !utf8.Valid(resp.Body) {
		s.printLine("<%d bytes of binary data>", len(resp.Body))
		return
	}
	if s.prettyJSON {
		var raw interface{}
		if err := json.Unmarshal(resp.Body, &raw); err == nil {
			formatted, _ := json.MarshalIndent(raw, "", "  ")
			s.printLine("%s", string(formatted))
			return
		}
	}
	s.printLine("%s", string(resp.Body))
}

func (s *Session) updateTokenFromResponse(cmd command.Command, params command.Params, body []byte) {
	if cmd.Service != "auth" {
		return
	}
	type userInfo struct {
		Username string `json:"username"`
	}
	type authData struct {
		AccessToken      string    `json:"access_token"`
		RefreshToken     string    `json:"refresh_token"`
		AccessExpiresAt  time.Time `json:"access_expires_at"`
		RefreshExpiresAt time.Time `json:"refresh_expires_at"`
		User             userInfo  `json:"user"`
	}
	type respEnvelope struct {
		Code int      `json:"code"`
		Data authData `json:"data"`
	}
	var resp respEnvelope
	if err := json.Unmarshal(body, &resp); err != nil {
		return
	}
	if resp.Code != int(pkgerrors.Success) {
		return
	}
	switch cmd.Action {
	case "login", "register", "refresh":
		if resp.Data.AccessToken != "" {
			s.tokenState.AccessToken = resp.Data.AccessToken
		}
		if resp.Data.RefreshToken != "" {
			s.tokenState.RefreshToken = resp.Data.RefreshToken
		}
		s.tokenState.AccessExpiresAt = resp.Data.AccessExpiresAt
		s.tokenState.RefreshExpiresAt = resp.Data.RefreshExpiresAt
		if resp.Data.User.Username != "" {
			s.tokenState.Username = resp.Data.User.Username
		} else if name := params.Get("username"); name != "" {
			s.tokenState.Username = name
		}
		_ = state.Save(s.statePath, *s.tokenState)
	case "logout":
		*s.tokenState = state.TokenState{}
		_ = state.Clear(s.statePath)
	}
}

func (s *Session) printHelp() {
	s.printLine("usage: <service> <action> key=value ...")
	s.printLine("system: help | whoami | exit | set base|timeout|token | show token|config")
	s.printLine("examples:")
	s.printLine("  auth login username=demo password=secret")
	s.printLine("  problem add title=\"Two Sum\" topic=Array difficulty=Easy status=Solved")
	s.printLine("  problem list search=sum sort_by=title order=asc")
	s.printLine("  stats summary")
	s.printLine("  suggest similar name=\"Two Sum\"")
}

func (s *Session) printLine(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.outputWriter, format+"\n", args...)
	_ = s.outputWriter.Flush()
}
