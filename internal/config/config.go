// Package config assembles the catalog configuration from an optional .env
// file and BOOKMARKS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/aggregat4/go-baselib/env"
	"github.com/joho/godotenv"

	"aggregat4/bookmarkcatalog/internal/domain"
	"aggregat4/bookmarkcatalog/internal/validation"
)

const appDirName = "bookmark_catalog"

// Load reads envFile (a missing file is not an error), overlays environment
// variables on the defaults and validates the result.
func Load(envFile string) (domain.Configuration, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return domain.Configuration{}, fmt.Errorf("error loading %s: %w", envFile, err)
		}
	}
	defaults := domain.DefaultConfiguration()
	config := domain.Configuration{
		DefaultScheme:             env.GetStringFromEnv("BOOKMARKS_DEFAULT_SCHEME", defaults.DefaultScheme),
		AcceptedSchemes:           splitList(env.GetStringFromEnv("BOOKMARKS_ACCEPTED_SCHEMES", strings.Join(defaults.AcceptedSchemes, ","))),
		DefaultListLimit:          env.GetIntFromEnv("BOOKMARKS_DEFAULT_LIMIT", defaults.DefaultListLimit),
		MaxListLimit:              env.GetIntFromEnv("BOOKMARKS_MAX_LIMIT", defaults.MaxListLimit),
		MaxTagLength:              env.GetIntFromEnv("BOOKMARKS_MAX_TAG_LENGTH", defaults.MaxTagLength),
		MaxTagsPerBookmark:        env.GetIntFromEnv("BOOKMARKS_MAX_TAGS_PER_BOOKMARK", defaults.MaxTagsPerBookmark),
		MaxTitleLength:            env.GetIntFromEnv("BOOKMARKS_MAX_TITLE_LENGTH", defaults.MaxTitleLength),
		MaxDescriptionLength:      env.GetIntFromEnv("BOOKMARKS_MAX_DESCRIPTION_LENGTH", defaults.MaxDescriptionLength),
		MaxImportErrorMessages:    env.GetIntFromEnv("BOOKMARKS_MAX_IMPORT_ERRORS", defaults.MaxImportErrorMessages),
		DbFilename:                env.GetStringFromEnv("BOOKMARKS_DB_FILENAME", DefaultDbFilename()),
		LogLevel:                  env.GetStringFromEnv("BOOKMARKS_LOG_LEVEL", defaults.LogLevel),
		LogFormat:                 env.GetStringFromEnv("BOOKMARKS_LOG_FORMAT", defaults.LogFormat),
		ServerPort:                env.GetIntFromEnv("BOOKMARKS_SERVER_PORT", defaults.ServerPort),
		ServerReadTimeoutSeconds:  env.GetIntFromEnv("BOOKMARKS_SERVER_READ_TIMEOUT_SECONDS", defaults.ServerReadTimeoutSeconds),
		ServerWriteTimeoutSeconds: env.GetIntFromEnv("BOOKMARKS_SERVER_WRITE_TIMEOUT_SECONDS", defaults.ServerWriteTimeoutSeconds),
		BaseUrl:                   env.GetStringFromEnv("BOOKMARKS_BASE_URL", defaults.BaseUrl),
		FeedSize:                  env.GetIntFromEnv("BOOKMARKS_FEED_SIZE", defaults.FeedSize),
	}
	if err := validation.New().Validate(config); err != nil {
		return domain.Configuration{}, err
	}
	return config, nil
}

// DefaultDbFilename honours XDG_DATA_HOME and falls back to ~/.local/share.
func DefaultDbFilename() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".", "bookmarks.sqlite")
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, appDirName, "bookmarks.sqlite")
}

func splitList(s string) []string {
	parts := make([]string, 0)
	for _, p := range strings.Split(s, ",") {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
