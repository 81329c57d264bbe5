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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bell24h/tijori/model"
)

func TestEnqueueTransfer(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	transfer := confirmedTransfer(15000000)

	err := engine.queue.EnqueueTransfer(context.Background(), transfer)
	assert.NoError(t, err)

	task, err := engine.queue.Inspector.GetTaskInfo("new:transfer", transfer.TransferID)
	assert.NoError(t, err)
	assert.Equal(t, transfer.TransferID, task.ID)
	assert.Equal(t, 3, task.MaxRetry)

	var payload TransferPayload
	assert.NoError(t, json.Unmarshal(task.Payload, &payload))
	assert.Equal(t, transfer.TransferID, payload.TransferID)
}

func TestEnqueueTransfer_DuplicateSkipped(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	transfer := confirmedTransfer(15000000)

	assert.NoError(t, engine.queue.EnqueueTransfer(context.Background(), transfer))
	// The task id is the transfer id; a second enqueue while the first
	// task is still pending is skipped, not an error.
	assert.NoError(t, engine.queue.EnqueueTransfer(context.Background(), transfer))

	pending, err := engine.queue.Inspector.ListPendingTasks("new:transfer")
	assert.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestEnqueueTransfer_DistinctTransfers(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	first := confirmedTransfer(15000000)
	second := confirmedTransfer(20000000)

	assert.NoError(t, engine.queue.EnqueueTransfer(context.Background(), first))
	assert.NoError(t, engine.queue.EnqueueTransfer(context.Background(), second))

	pending, err := engine.queue.Inspector.ListPendingTasks("new:transfer")
	assert.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestQueueWebhookPayloadRoundTrip(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)

	event := model.NewDomainEvent(model.EventTransferCompleted, "dtf_1", "processing", "complete", map[string]interface{}{"net_amount": 14557500})
	assert.NoError(t, engine.queue.queueWebhook(NewWebhook{Event: model.EventTransferCompleted, Payload: event}))

	pending, err := engine.queue.Inspector.ListPendingTasks("new:webhook")
	assert.NoError(t, err)
	assert.Len(t, pending, 1)

	var decoded NewWebhook
	assert.NoError(t, json.Unmarshal(pending[0].Payload, &decoded))
	assert.Equal(t, model.EventTransferCompleted, decoded.Event)
}
