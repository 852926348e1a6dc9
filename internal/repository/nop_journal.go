package repository

import (
	"context"

	"PulseTrade/internal/domain/models"
	"PulseTrade/internal/domain/repository"
)

// NopJournal drops all events. Wired when journaling is disabled.
type NopJournal struct{}

var _ repository.Journal = NopJournal{}

func (NopJournal) RecordOpen(context.Context, models.TradeOpened) error   { return nil }
func (NopJournal) RecordClose(context.Context, models.TradeSettled) error { return nil }
func (NopJournal) Close() error                                           { return nil }
