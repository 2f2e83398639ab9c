package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"google.golang.org/api/option"

	"github.com/2beens/pushups/internal/backup"
	"github.com/2beens/pushups/internal/pushups/entries"
	"github.com/2beens/pushups/internal/users"
)

func newBackupCmd(opts *rootOptions) *cobra.Command {
	var credentialsFile string

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Upload a JSON snapshot of users and entries to Google Drive",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if fromEnv := os.Getenv("PUSHUPS_GDRIVE_CREDENTIALS"); fromEnv != "" && !cmd.Flags().Changed("gd-creds") {
				credentialsFile = fromEnv
			}
			if credentialsFile == "" {
				return fmt.Errorf("google drive credentials json not specified")
			}
			credentialsFileBytes, err := os.ReadFile(credentialsFile)
			if err != nil {
				return fmt.Errorf("unable to read credentials file: %w", err)
			}

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			s, err := backup.NewGoogleDriveBackupService(ctx, backup.DriveBackupParams{
				FolderName:    cfg.BackupFolderName,
				Users:         users.NewRepo(pool),
				Entries:       entries.NewRepo(pool),
				ClientOptions: []option.ClientOption{backup.CredentialsOption(credentialsFileBytes)},
			})
			if err != nil {
				return fmt.Errorf("new google drive backup service: %w", err)
			}

			file, err := s.DoBackup(ctx)
			if err != nil {
				return err
			}
			log.Infof("backup done: %s (%s)", file.Name, file.Id)
			return nil
		},
	}

	cmd.Flags().StringVar(&credentialsFile, "gd-creds", "./drive-credentials.json", "google drive service account credentials json, PUSHUPS_GDRIVE_CREDENTIALS when not set")

	return cmd
}
