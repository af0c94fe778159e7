// Package storage builds the result store from configuration
package storage

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockpulse/internal/common"
	"github.com/ternarybob/stockpulse/internal/interfaces"
	"github.com/ternarybob/stockpulse/internal/storage/badger"
)

// NewAnalysisStorage opens the Badger-backed analysis store
func NewAnalysisStorage(logger arbor.ILogger, config *common.Config) (interfaces.AnalysisStorage, error) {
	db, err := badger.NewBadgerDB(logger, config.Storage.Badger)
	if err != nil {
		return nil, err
	}
	return badger.NewAnalysisStorage(db, logger), nil
}
