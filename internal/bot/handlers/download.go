package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-telegram/bot"
)

const (
	maxVoiceSize    = 10 * 1024 * 1024
	downloadTimeout = 30 * time.Second
)

// downloadFile fetches a Telegram file by ID from the bot's file endpoint.
func downloadFile(ctx context.Context, b *bot.Bot, fileID string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	file, err := b.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}
	if file.FileSize > maxVoiceSize {
		return nil, fmt.Errorf("file too large: %d bytes", file.FileSize)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.FileDownloadLink(file), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download file: status %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxVoiceSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) > maxVoiceSize {
		return nil, fmt.Errorf("file exceeds %d bytes", maxVoiceSize)
	}
	return data, nil
}
