// Package upload publishes exported files as hosted spreadsheets.
package upload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GoogleSheetMIME asks Drive to convert the upload into a native spreadsheet.
const GoogleSheetMIME = "application/vnd.google-apps.spreadsheet"

var sourceMIME = map[string]string{
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".csv":  "text/csv",
}

// CanConvert reports whether files with the extension (".xlsx") can be
// published as a hosted spreadsheet.
func CanConvert(ext string) bool {
	_, ok := sourceMIME[strings.ToLower(ext)]
	return ok
}

// filesCreator is the slice of the Drive API used here.
type filesCreator interface {
	create(ctx context.Context, meta *drive.File, media *os.File, contentType string) (string, error)
}

type driveFiles struct {
	svc *drive.Service
}

func (d driveFiles) create(ctx context.Context, meta *drive.File, media *os.File, contentType string) (string, error) {
	file, err := d.svc.Files.Create(meta).
		Media(media, googleapi.ContentType(contentType)).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", err
	}
	return file.Id, nil
}

// DriveUploader uploads files with a service account credential.
type DriveUploader struct {
	files filesCreator
}

// NewDriveUploader authenticates with the service account file, limited to
// files created by this application.
func NewDriveUploader(ctx context.Context, credentialsFile string) (*DriveUploader, error) {
	svc, err := drive.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(drive.DriveFileScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create drive client: %w", err)
	}
	return &DriveUploader{files: driveFiles{svc: svc}}, nil
}

// Upload publishes the file under displayName and returns the hosted file id.
func (u *DriveUploader) Upload(ctx context.Context, filePath, displayName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	contentType, ok := sourceMIME[ext]
	if !ok {
		return "", fmt.Errorf("cannot convert %s files to a spreadsheet", ext)
	}
	media, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("open upload source: %w", err)
	}
	defer media.Close() //nolint:errcheck

	if displayName == "" {
		displayName = strings.TrimSuffix(filepath.Base(filePath), ext)
	}
	id, err := u.files.create(ctx, &drive.File{Name: displayName, MimeType: GoogleSheetMIME}, media, contentType)
	if err != nil {
		return "", fmt.Errorf("drive create %q: %w", displayName, err)
	}
	return id, nil
}
