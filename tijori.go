/*
Copyright 2025 Tijori Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package tijori

import (
	"embed"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/bell24h/tijori/config"
	"github.com/bell24h/tijori/database"
	"github.com/bell24h/tijori/internal/apierror"
	redis_db "github.com/bell24h/tijori/internal/redis-db"
	"github.com/bell24h/tijori/model"
)

// Tijori is the settlement engine: it routes transactions between the
// direct-transfer and escrow paths and drives the resulting state
// machines. Fund movement itself is delegated to the external ledger.
type Tijori struct {
	queue       *Queue
	redis       redis.UniversalClient
	datasource  database.IDataSource
	wallet      WalletProvider
	ledger      LedgerExecutor
	tiers       TierProvider
	feeSchedule model.FeeSchedule
}

//go:embed sql/*.sql
var SQLFiles embed.FS

// NewTijori initializes the settlement engine with the provided
// datasource and external collaborators. Configuration must already be
// loaded; the fee schedule is parsed once here so a malformed rate
// fails fast at startup rather than mid-settlement.
func NewTijori(db database.IDataSource, wallet WalletProvider, ledger LedgerExecutor, tiers TierProvider) (*Tijori, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	redisClient, err := redis_db.NewRedisClient([]string{fmt.Sprintf("redis://%s", configuration.Redis.Dns)})
	if err != nil {
		return nil, err
	}

	schedule, err := feeScheduleFromConfig(configuration.Settlement)
	if err != nil {
		return nil, err
	}

	newQueue := NewQueue(configuration)
	newTijori := &Tijori{
		queue:       newQueue,
		redis:       redisClient.Client(),
		datasource:  db,
		wallet:      wallet,
		ledger:      ledger,
		tiers:       tiers,
		feeSchedule: schedule,
	}
	return newTijori, nil
}

// feeScheduleFromConfig parses the configured decimal-string rates
// into the fee schedule used by the router.
func feeScheduleFromConfig(cfg config.SettlementConfig) (model.FeeSchedule, error) {
	schedule := model.FeeSchedule{
		DirectRates: make(map[model.Tier]decimal.Decimal),
		EscrowRates: make(map[model.Tier]decimal.Decimal),
	}

	gst, err := decimal.NewFromString(cfg.GSTRate)
	if err != nil {
		return model.FeeSchedule{}, apierror.NewAPIError(apierror.ErrFeeSchedule, fmt.Sprintf("invalid gst rate '%s'", cfg.GSTRate), err)
	}
	schedule.GSTRate = gst

	for tier, rate := range cfg.DirectFeeRates {
		d, err := decimal.NewFromString(rate)
		if err != nil {
			return model.FeeSchedule{}, apierror.NewAPIError(apierror.ErrFeeSchedule, fmt.Sprintf("invalid direct fee rate '%s' for tier '%s'", rate, tier), err)
		}
		schedule.DirectRates[model.Tier(tier)] = d
	}
	for tier, rate := range cfg.EscrowFeeRates {
		d, err := decimal.NewFromString(rate)
		if err != nil {
			return model.FeeSchedule{}, apierror.NewAPIError(apierror.ErrFeeSchedule, fmt.Sprintf("invalid escrow fee rate '%s' for tier '%s'", rate, tier), err)
		}
		schedule.EscrowRates[model.Tier(tier)] = d
	}

	return schedule, nil
}

// FeeSchedule exposes the parsed schedule, mainly for fee previews.
func (l *Tijori) FeeSchedule() model.FeeSchedule {
	return l.feeSchedule
}
