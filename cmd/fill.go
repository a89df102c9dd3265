// -- cmd/fill.go --
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/intakefill/api/schemas"
	"github.com/xkilldash9x/intakefill/internal/browser"
	"github.com/xkilldash9x/intakefill/internal/engine"
	"github.com/xkilldash9x/intakefill/internal/messaging"
	"github.com/xkilldash9x/intakefill/internal/observability"
	"github.com/xkilldash9x/intakefill/internal/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const shutdownGracePeriod = 15 * time.Second

func newFillCommand() *cobra.Command {
	var (
		recordFile  string
		fromProfile bool
		formURL     string
	)

	fillCmd := &cobra.Command{
		Use:   "fill",
		Short: "Fill the configured intake form with a client record.",
		Long: `Fill launches the browser, navigates to the intake form and runs one
autofill pass. The outcome is printed to stdout as JSON. An intake form that
never renders a fillable field yields {"success": false} rather than an
error.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			record, err := loadRecord(recordFile, fromProfile)
			if err != nil {
				return err
			}
			return runFill(cmd.Context(), cmd, record, formURL)
		},
	}

	fillCmd.Flags().StringVarP(&recordFile, "record", "r", "", "path to a JSON client record file")
	fillCmd.Flags().BoolVar(&fromProfile, "from-profile", false, "use the saved profile as the record")
	fillCmd.Flags().StringVarP(&formURL, "url", "u", "", "intake form URL (overrides target.form_url)")
	return fillCmd
}

// loadRecord resolves the client record from one of the two sources.
func loadRecord(recordFile string, fromProfile bool) (schemas.ClientRecord, error) {
	switch {
	case fromProfile && recordFile != "":
		return schemas.ClientRecord{}, fmt.Errorf("--record and --from-profile are mutually exclusive")
	case fromProfile:
		s, err := store.New(loadedCfg.Store, observability.GetLogger())
		if err != nil {
			return schemas.ClientRecord{}, err
		}
		return s.Load()
	case recordFile != "":
		data, err := os.ReadFile(recordFile)
		if err != nil {
			return schemas.ClientRecord{}, fmt.Errorf("failed to read record file: %w", err)
		}
		var record schemas.ClientRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return schemas.ClientRecord{}, fmt.Errorf("failed to parse record file %s: %w", recordFile, err)
		}
		return record.Normalize(), nil
	default:
		return schemas.ClientRecord{}, fmt.Errorf("a record source is required: --record <file> or --from-profile")
	}
}

func runFill(ctx context.Context, cmd *cobra.Command, record schemas.ClientRecord, formURL string) error {
	logger := observability.GetLogger()
	cfg := loadedCfg

	if record.IsEmpty() {
		return fmt.Errorf("the record contains no data to fill")
	}
	if formURL != "" {
		cfg.Target.FormURL = formURL
		cfg.Target.Domain = ""
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Target.FormURL == "" {
		return fmt.Errorf("an intake form URL is required: --url or target.form_url")
	}

	manager, err := browser.NewManager(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if err := manager.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Browser shutdown reported an error.", zap.Error(err))
		}
	}()

	page, err := manager.NewPage(ctx)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		_ = page.Close(closeCtx)
	}()

	if err := page.Navigate(ctx, cfg.Target.FormURL); err != nil {
		return err
	}

	eng := engine.New(cfg.Engine, cfg.Target.Domain, logger)
	handler := messaging.NewHandler(func(ctx context.Context, r schemas.ClientRecord) schemas.FillResult {
		return eng.RunWithRetry(ctx, page, r)
	}, logger)

	resp := handler.HandleRequest(ctx, schemas.AutofillRequest{
		Action: schemas.ActionAutofill,
		Data:   record,
	})

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
