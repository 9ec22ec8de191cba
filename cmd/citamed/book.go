package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/citamed/citamed/internal/booking"
)

func bookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Book an appointment interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiURL, _ := cmd.Flags().GetString("api-url")
			token, _ := cmd.Flags().GetString("token")
			if token == "" {
				token = os.Getenv("CITAMED_TOKEN")
			}

			client := booking.NewAPIClient(apiURL, token, nil)
			bc, err := client.LoadBookingContext(cmd.Context())
			if errors.Is(err, booking.ErrNoPatientSession) {
				return fmt.Errorf("a signed-in patient is required: pass --token or set CITAMED_TOKEN")
			}
			if err != nil {
				return err
			}

			wiz := booking.NewWizard(bc.PatientID, bc.Doctors, client)
			return booking.NewTerminal(cmd.InOrStdin(), cmd.OutOrStdout(), wiz).Run(cmd.Context())
		},
	}
	cmd.Flags().String("api-url", "http://localhost:8000", "Base URL of the CitaMed server")
	cmd.Flags().String("token", "", "Session token of the patient (defaults to CITAMED_TOKEN)")
	return cmd
}
