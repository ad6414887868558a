package storage

import (
	"fmt"
	"strings"
	"time"
)

// DefaultPrefix is the object prefix datasets are stored under.
const DefaultPrefix = "datasets"

// LatestSegment names the folder that mirrors the most recent run.
const LatestSegment = "latest"

// DatasetObjectPath composes "<prefix>/<yyyy>/<mm>/<runID>/<fileName>". The year and month come
// from the run creation time in UTC.
func DatasetObjectPath(prefix string, createdAt time.Time, runID, fileName string) (string, error) {
	root, err := validatePrefix(prefix)
	if err != nil {
		return "", err
	}
	id, err := validateSegment("runID", runID)
	if err != nil {
		return "", err
	}
	name, err := validateFileName(fileName)
	if err != nil {
		return "", err
	}
	if createdAt.IsZero() {
		return "", fmt.Errorf("storage: createdAt is required")
	}
	utc := createdAt.UTC()
	return fmt.Sprintf("%s/%04d/%02d/%s/%s", root, utc.Year(), int(utc.Month()), id, name), nil
}

// LatestObjectPath composes "<prefix>/latest/<fileName>".
func LatestObjectPath(prefix, fileName string) (string, error) {
	root, err := validatePrefix(prefix)
	if err != nil {
		return "", err
	}
	name, err := validateFileName(fileName)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s/%s", root, LatestSegment, name), nil
}

// ObjectURI renders the gs:// URI of an object.
func ObjectURI(bucket, object string) string {
	return fmt.Sprintf("gs://%s/%s", bucket, object)
}

func validatePrefix(prefix string) (string, error) {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return DefaultPrefix, nil
	}
	for _, segment := range strings.Split(prefix, "/") {
		if _, err := validateSegment("prefix", segment); err != nil {
			return "", err
		}
	}
	return prefix, nil
}

func validateSegment(name, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("storage: %s is required", name)
	}
	if strings.ContainsAny(value, "/\\") {
		return "", fmt.Errorf("storage: %s contains invalid path characters", name)
	}
	if strings.Contains(value, "..") {
		return "", fmt.Errorf("storage: %s contains invalid traversal sequence", name)
	}
	return value, nil
}

func validateFileName(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("storage: fileName is required")
	}
	if strings.ContainsAny(value, "/\\") {
		return "", fmt.Errorf("storage: fileName contains invalid path characters")
	}
	if strings.Contains(value, "..") {
		return "", fmt.Errorf("storage: fileName contains invalid traversal sequence")
	}
	return value, nil
}
