package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.TermiiSenderID != "Curavoice" {
		t.Errorf("TermiiSenderID = %q, want Curavoice", cfg.TermiiSenderID)
	}
	if cfg.ReminderLeadMin != 24*time.Hour || cfg.ReminderLeadMax != 48*time.Hour {
		t.Errorf("reminder window = [%v, %v], want [24h, 48h]", cfg.ReminderLeadMin, cfg.ReminderLeadMax)
	}
	if cfg.NotifyWorkerCount != 2 {
		t.Errorf("NotifyWorkerCount = %d, want 2", cfg.NotifyWorkerCount)
	}
	if cfg.ReminderSweepEnabled {
		t.Error("ReminderSweepEnabled = true, the in-API sweep must default off")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("STORE_TIMEOUT", "2s")
	t.Setenv("NOTIFY_WORKER_COUNT", "5")
	t.Setenv("WEBHOOK_RATE_PER_SECOND", "2.5")
	t.Setenv("REMINDER_SWEEP_ENABLED", "true")

	cfg := Load()

	if cfg.Port != "9999" {
		t.Errorf("Port = %q, want 9999", cfg.Port)
	}
	if cfg.StoreTimeout != 2*time.Second {
		t.Errorf("StoreTimeout = %v, want 2s", cfg.StoreTimeout)
	}
	if cfg.NotifyWorkerCount != 5 {
		t.Errorf("NotifyWorkerCount = %d, want 5", cfg.NotifyWorkerCount)
	}
	if cfg.WebhookRatePerSecond != 2.5 {
		t.Errorf("WebhookRatePerSecond = %v, want 2.5", cfg.WebhookRatePerSecond)
	}
	if !cfg.ReminderSweepEnabled {
		t.Error("ReminderSweepEnabled = false, want true from env")
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("NOTIFY_QUEUE_SIZE", "not-a-number")
	t.Setenv("REMINDER_INTERVAL", "soon")

	cfg := Load()

	if cfg.NotifyQueueSize != 256 {
		t.Errorf("NotifyQueueSize = %d, want default 256", cfg.NotifyQueueSize)
	}
	if cfg.ReminderInterval != 15*time.Minute {
		t.Errorf("ReminderInterval = %v, want default 15m", cfg.ReminderInterval)
	}
}
