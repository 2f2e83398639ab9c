package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/2beens/pushups/internal/telemetry/tracing"
)

const (
	DefaultFolderName = "pushups-backup"
	folderMimeType    = "application/vnd.google-apps.folder"
)

type DriveBackupParams struct {
	FolderName    string
	Users         usersLister
	Entries       entriesLister
	ClientOptions []option.ClientOption
}

// GoogleDriveBackupService uploads a JSON snapshot of all users and their
// entries into one Drive folder.
type GoogleDriveBackupService struct {
	service         *drive.Service
	users           usersLister
	entries         entriesLister
	backupsFolderId string
	now             func() time.Time
}

func CredentialsOption(credentialsJson []byte) option.ClientOption {
	return option.WithCredentialsJSON(credentialsJson)
}

func NewGoogleDriveBackupService(ctx context.Context, params DriveBackupParams) (*GoogleDriveBackupService, error) {
	driveService, err := drive.NewService(ctx, params.ClientOptions...)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve drive client: %w", err)
	}

	folderName := params.FolderName
	if folderName == "" {
		folderName = DefaultFolderName
	}

	s := &GoogleDriveBackupService{
		service: driveService,
		users:   params.Users,
		entries: params.Entries,
		now:     time.Now,
	}

	s.backupsFolderId, err = s.findOrCreateFolder(ctx, folderName)
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (s *GoogleDriveBackupService) FolderID() string {
	return s.backupsFolderId
}

func (s *GoogleDriveBackupService) DoBackup(ctx context.Context) (_ *drive.File, err error) {
	ctx, span := tracing.GlobalCLITracer.Start(ctx, "backup.doBackup")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	snapshot, err := BuildSnapshot(ctx, s.users, s.entries, s.now())
	if err != nil {
		return nil, fmt.Errorf("build snapshot: %w", err)
	}

	snapshotBytes, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}

	fileMeta := &drive.File{
		Name:     fmt.Sprintf("pushups-%s.json", snapshot.CreatedAt.Format("20060102-150405")),
		MimeType: "application/json",
		Parents:  []string{s.backupsFolderId},
	}

	backupFile, err := s.service.
		Files.Create(fileMeta).
		Fields("id, name, parents").
		Media(bytes.NewReader(snapshotBytes)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("upload backup file: %w", err)
	}

	log.Printf("backup %s uploaded (%s), %d users", backupFile.Name, backupFile.Id, len(snapshot.Users))

	return backupFile, nil
}

func (s *GoogleDriveBackupService) findOrCreateFolder(ctx context.Context, folderName string) (string, error) {
	folderQuery := fmt.Sprintf("mimeType = '%s' and trashed = false and name = '%s'", folderMimeType, folderName)
	found, err := s.service.
		Files.List().
		Q(folderQuery).
		Fields("files(id, name)").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("unable to retrieve files: %w", err)
	}

	switch len(found.Files) {
	case 0:
		log.Println("root backups folder not found, creating ...")
	case 1:
		log.Debugf("root backups folder found, %s: %s", found.Files[0].Name, found.Files[0].Id)
		return found.Files[0].Id, nil
	default:
		log.Warnf("found %d root backups folders, will take the first one: %s", len(found.Files), found.Files[0].Id)
		return found.Files[0].Id, nil
	}

	folder, err := s.service.
		Files.Create(&drive.File{Name: folderName, MimeType: folderMimeType}).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to create root backups folder: %w", err)
	}
	log.Printf("new root backups folder created: %s", folder.Id)

	return folder.Id, nil
}
