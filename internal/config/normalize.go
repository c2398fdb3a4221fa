package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeOCR()
	c.normalizeNotifications()
	c.normalizeLogging()
	c.normalizeShareCard()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeOCR() {
	c.OCR.BaseURL = strings.TrimRight(strings.TrimSpace(c.OCR.BaseURL), "/")
	c.OCR.AuthToken = strings.TrimSpace(c.OCR.AuthToken)
	if c.OCR.RequestTimeout <= 0 {
		c.OCR.RequestTimeout = defaultOCRRequestTimeout
	}
	if c.OCR.MaxImageBytes <= 0 {
		c.OCR.MaxImageBytes = defaultOCRMaxImageBytes
	}
	if c.OCR.BatchSize <= 0 {
		c.OCR.BatchSize = defaultOCRBatchSize
	}
	if c.OCR.MaxConcurrent <= 0 {
		c.OCR.MaxConcurrent = defaultOCRMaxConcurrent
	}
	if c.OCR.PollInterval <= 0 {
		c.OCR.PollInterval = defaultOCRPollInterval
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeShareCard() {
	if c.ShareCard.Width <= 0 {
		c.ShareCard.Width = defaultCardWidth
	}
	if c.ShareCard.Height <= 0 {
		c.ShareCard.Height = defaultCardHeight
	}
}
