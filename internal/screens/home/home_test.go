package home

import (
	"context"
	"testing"

	"github.com/abhisek/atrisk/internal/screens"
	"github.com/abhisek/atrisk/internal/training"
)

func retrainItem(t *testing.T, h *HomeScreen) int {
	t.Helper()
	for i, item := range h.menu.Items {
		if item.Label == "RETRAIN MODEL" {
			return i
		}
	}
	t.Fatal("no retrain entry in the menu")
	return -1
}

func TestRetrainEntryFollowsDeps(t *testing.T) {
	h := New(screens.Deps{})
	if !h.menu.Items[retrainItem(t, h)].Disabled {
		t.Error("retrain should be disabled without a retrain hook")
	}

	h = New(screens.Deps{Retrain: func(context.Context) (*training.RetrainResult, error) { return nil, nil }})
	if h.menu.Items[retrainItem(t, h)].Disabled {
		t.Error("retrain should be enabled")
	}
}
