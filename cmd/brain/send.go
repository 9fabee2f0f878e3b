package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"brain/internal/control"
	"brain/internal/visual"
)

const defaultControlAddr = "127.0.0.1:7700"

var (
	sendAddr      string
	sendIntensity float64
	sendTimeout   = 5 * time.Second
)

var sendCmd = &cobra.Command{
	Use:   "send EVENT",
	Short: "Fire an event at a running instance",
	Long: `Posts EVENT to the control API of a running instance and prints the
resulting state.

Events: idle, hover_primary, click_primary, hover_secondary,
operation_start, operation_success, operation_error, cycle`,
	Args: cobra.ExactArgs(1),
	RunE: runSend,
}

var execCmd = &cobra.Command{
	Use:   "exec -- COMMAND [ARGS...]",
	Short: "Run a command and mirror its lifecycle on a running instance",
	Long: `Fires operation_start, runs COMMAND, then fires operation_success or
operation_error depending on its exit status. The command's exit status is
returned unchanged.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExec,
}

func init() {
	for _, c := range []*cobra.Command{sendCmd, execCmd} {
		c.Flags().StringVar(&sendAddr, "addr", "", "Control API address (default from config, then "+defaultControlAddr+")")
	}
	sendCmd.Flags().Float64Var(&sendIntensity, "intensity", 0, "Intensity in [0,1]")
}

func controlAddr() string {
	if sendAddr != "" {
		return sendAddr
	}
	if cfg != nil && cfg.Control.Addr != "" {
		return cfg.Control.Addr
	}
	return defaultControlAddr
}

func runSend(cmd *cobra.Command, args []string) error {
	msg, err := sendEvent(cmd.Context(), controlAddr(), args[0], sendIntensity)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", msg.State, msg.Label)
	return nil
}

func runExec(cmd *cobra.Command, args []string) error {
	addr := controlAddr()
	ctx := cmd.Context()
	notify := func(e visual.Event) {
		if _, err := sendEvent(ctx, addr, string(e), 0); err != nil {
			logger.Warn("could not reach visualization", zap.String("event", string(e)), zap.Error(err))
		}
	}

	notify(visual.EventOperationStart)
	c := exec.CommandContext(ctx, args[0], args[1:]...)
	c.Stdin, c.Stdout, c.Stderr = os.Stdin, cmd.OutOrStdout(), cmd.ErrOrStderr()
	runErr := c.Run()
	if runErr != nil {
		notify(visual.EventOperationError)
		return runErr
	}
	notify(visual.EventOperationSuccess)
	return nil
}

func controlURL(addr, path string) string {
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		addr = "http://" + addr
	}
	return strings.TrimSuffix(addr, "/") + path
}

// sendEvent posts one event and returns the state the instance reports.
func sendEvent(ctx context.Context, addr, event string, intensity float64) (control.StateMessage, error) {
	var msg control.StateMessage
	e, err := visual.ParseEvent(event)
	if err != nil {
		return msg, err
	}
	if intensity < 0 || intensity > 1 {
		return msg, fmt.Errorf("intensity %v outside [0,1]", intensity)
	}
	body, err := json.Marshal(control.EventRequest{Event: string(e), Intensity: intensity})
	if err != nil {
		return msg, err
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, controlURL(addr, "/events"), bytes.NewReader(body))
	if err != nil {
		return msg, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return msg, fmt.Errorf("control api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		var apiErr struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		if json.Unmarshal(raw, &apiErr) != nil || apiErr.Error == "" {
			apiErr.Error = strings.TrimSpace(string(raw))
		}
		return msg, fmt.Errorf("control api: %s: %s", resp.Status, apiErr.Error)
	}
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return msg, fmt.Errorf("control api: decode state: %w", err)
	}
	if msg.State == "" {
		return msg, errors.New("control api: empty state")
	}
	return msg, nil
}
