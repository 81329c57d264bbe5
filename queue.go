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
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/hibiken/asynq"

	"github.com/bell24h/tijori/config"
	redis_db "github.com/bell24h/tijori/internal/redis-db"
	"github.com/bell24h/tijori/model"
)

// Queue carries the asynq client and inspector used to hand confirmed
// transfers and webhook notifications to the worker pool.
type Queue struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector
}

// TransferPayload is the task body for a queued transfer.
type TransferPayload struct {
	TransferID string `json:"transfer_id"`
}

// NewQueue initializes a Queue from the redis configuration.
func NewQueue(conf *config.Configuration) *Queue {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns)
	if err != nil {
		log.Fatalf("Error parsing Redis URL: %v", err)
	}

	queueOptions := asynq.RedisClientOpt{Addr: redisOption.Addr, Password: redisOption.Password, DB: redisOption.DB, TLSConfig: redisOption.TLSConfig}
	client := asynq.NewClient(queueOptions)
	inspector := asynq.NewInspector(queueOptions)
	return &Queue{
		Client:    client,
		Inspector: inspector,
	}
}

// EnqueueTransfer puts a confirmed transfer on the processing queue.
// The task id is the transfer id, so a transfer cannot be queued twice
// while a prior task for it is still pending or in flight.
func (q *Queue) EnqueueTransfer(ctx context.Context, transfer *model.DirectTransfer) error {
	cfg, err := config.Fetch()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(TransferPayload{TransferID: transfer.TransferID})
	if err != nil {
		return err
	}
	taskOptions := []asynq.Option{
		asynq.TaskID(transfer.TransferID),
		asynq.Queue(cfg.Queue.TransferQueue),
		asynq.MaxRetry(cfg.Queue.MaxRetryAttempts),
	}
	task := asynq.NewTask(cfg.Queue.TransferQueue, payload, taskOptions...)
	info, err := q.Client.EnqueueContext(ctx, task)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			log.Printf(" [*] Transfer %s already queued, skipping", transfer.TransferID)
			return nil
		}
		log.Println(err, info)
		return err
	}
	log.Printf(" [*] Successfully enqueued transfer: %+v", transfer.TransferID)
	return nil
}

// queueWebhook puts a webhook notification on the webhook queue.
func (q *Queue) queueWebhook(webhook NewWebhook) error {
	cfg, err := config.Fetch()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(webhook)
	if err != nil {
		return err
	}
	taskOptions := []asynq.Option{asynq.Queue(cfg.Queue.WebhookQueue)}
	task := asynq.NewTask(cfg.Queue.WebhookQueue, payload, taskOptions...)
	info, err := q.Client.Enqueue(task)
	if err != nil {
		log.Println(err, info)
		return err
	}
	return nil
}
