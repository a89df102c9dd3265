// -- cmd/profile.go --
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/intakefill/api/schemas"
	"github.com/xkilldash9x/intakefill/internal/observability"
	"github.com/xkilldash9x/intakefill/internal/store"
)

func newProfileCommand() *cobra.Command {
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage the locally saved client record.",
	}
	profileCmd.AddCommand(
		newProfileSaveCommand(),
		newProfileShowCommand(),
		newProfileDeleteCommand(),
	)
	return profileCmd
}

func openStore() (*store.Store, error) {
	return store.New(loadedCfg.Store, observability.GetLogger())
}

func newProfileSaveCommand() *cobra.Command {
	var (
		recordFile string
		record     schemas.ClientRecord
	)

	saveCmd := &cobra.Command{
		Use:   "save",
		Short: "Save a client record for later fill runs.",
		Long: `Save stores a record locally so "fill --from-profile" can reuse it.
Fields given as flags override fields from --record.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			base := schemas.ClientRecord{}
			if recordFile != "" {
				data, err := os.ReadFile(recordFile)
				if err != nil {
					return fmt.Errorf("failed to read record file: %w", err)
				}
				if err := json.Unmarshal(data, &base); err != nil {
					return fmt.Errorf("failed to parse record file %s: %w", recordFile, err)
				}
			}
			merged := mergeRecords(base, record)
			if merged.IsEmpty() {
				return fmt.Errorf("nothing to save: provide --record or field flags")
			}

			s, err := openStore()
			if err != nil {
				return err
			}
			if err := s.Save(merged); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Profile saved to %s\n", s.Path())
			return nil
		},
	}

	saveCmd.Flags().StringVarP(&recordFile, "record", "r", "", "path to a JSON client record file")
	saveCmd.Flags().StringVar(&record.ClientType, "client-type", "", "adult, minor or couple")
	saveCmd.Flags().StringVar(&record.BillingType, "billing-type", "", "self-pay or insurance")
	saveCmd.Flags().StringVar(&record.FirstName, "first-name", "", "legal first name")
	saveCmd.Flags().StringVar(&record.LastName, "last-name", "", "legal last name")
	saveCmd.Flags().StringVar(&record.PreferredName, "preferred-name", "", "preferred name")
	saveCmd.Flags().StringVar(&record.Email, "email", "", "email address")
	saveCmd.Flags().StringVar(&record.Phone, "phone", "", "phone number")
	saveCmd.Flags().StringVar(&record.DOBMonth, "dob-month", "", "birth month (1-12)")
	saveCmd.Flags().StringVar(&record.DOBDay, "dob-day", "", "birth day")
	saveCmd.Flags().StringVar(&record.DOBYear, "dob-year", "", "birth year")
	return saveCmd
}

func newProfileShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the saved client record as JSON.",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			record, err := s.Load()
			if err != nil {
				if errors.Is(err, store.ErrNoProfile) {
					return fmt.Errorf("no profile saved yet, use \"intakefill profile save\"")
				}
				return err
			}
			out, err := json.MarshalIndent(record, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}

func newProfileDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Remove the saved client record.",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			if err := s.Delete(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Profile deleted.")
			return nil
		},
	}
}

// mergeRecords overlays non-empty fields of override onto base.
func mergeRecords(base, override schemas.ClientRecord) schemas.ClientRecord {
	pick := func(b, o string) string {
		if o != "" {
			return o
		}
		return b
	}
	return schemas.ClientRecord{
		ClientType:    pick(base.ClientType, override.ClientType),
		BillingType:   pick(base.BillingType, override.BillingType),
		FirstName:     pick(base.FirstName, override.FirstName),
		LastName:      pick(base.LastName, override.LastName),
		PreferredName: pick(base.PreferredName, override.PreferredName),
		Email:         pick(base.Email, override.Email),
		Phone:         pick(base.Phone, override.Phone),
		DOBMonth:      pick(base.DOBMonth, override.DOBMonth),
		DOBDay:        pick(base.DOBDay, override.DOBDay),
		DOBYear:       pick(base.DOBYear, override.DOBYear),
	}
}
