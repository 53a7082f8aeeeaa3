package queue

import (
	"database/sql"
	"errors"
	"time"
)

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id           int64
		titleRaw     string
		urlRaw       sql.NullString
		imageURL     sql.NullString
		source       sql.NullString
		contentType  sql.NullString
		statusStr    string
		matchedJSON  sql.NullString
		matchScore   sql.NullFloat64
		collection   sql.NullString
		attempts     sql.NullInt64
		downloadURL  sql.NullString
		remoteID     sql.NullString
		remoteURL    sql.NullString
		errorMessage sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&titleRaw,
		&urlRaw,
		&imageURL,
		&source,
		&contentType,
		&statusStr,
		&matchedJSON,
		&matchScore,
		&collection,
		&attempts,
		&downloadURL,
		&remoteID,
		&remoteURL,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:               id,
		Title:            titleRaw,
		URL:              urlRaw.String,
		ImageURL:         imageURL.String,
		Source:           source.String,
		ContentType:      contentType.String,
		Status:           Status(statusStr),
		MatchedAssetJSON: matchedJSON.String,
		MatchScore:       matchScore.Float64,
		Collection:       collection.String,
		Attempts:         int(attempts.Int64),
		DownloadURL:      downloadURL.String,
		RemoteID:         remoteID.String,
		RemoteURL:        remoteURL.String,
		ErrorMessage:     errorMessage.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	return item, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
