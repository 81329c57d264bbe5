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
	"net/http"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"

	"github.com/bell24h/tijori/config"
	"github.com/bell24h/tijori/model"
)

func webhookConfig(url string) *config.Configuration {
	cnf := &config.Configuration{}
	cnf.Notification.Webhook.Url = url
	return cnf
}

func TestSendWebhook(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	conf, err := config.Fetch()
	assert.NoError(t, err)
	conf.Notification.Webhook.Url = "http://localhost:5001/webhook"
	conf.Queue.WebhookQueue = "new:webhook"
	config.MockConfig(conf)

	engine.SendWebhook(NewWebhook{
		Event:   model.EventEscrowFunded,
		Payload: model.NewDomainEvent(model.EventEscrowFunded, "esc_1", "pending", "active", nil),
	})

	pending, err := engine.queue.Inspector.ListPendingTasks("new:webhook")
	assert.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestSendWebhook_DisabledWithoutURL(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)

	engine.SendWebhook(NewWebhook{Event: model.EventEscrowFunded})

	pending, err := engine.queue.Inspector.ListPendingTasks("new:webhook")
	assert.NoError(t, err)
	assert.Empty(t, pending)
}

func TestProcessWebhook(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	config.MockConfig(webhookConfig("http://localhost:5001/webhook"))

	var delivered NewWebhook
	httpmock.RegisterResponder("POST", "http://localhost:5001/webhook",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
			assert.NoError(t, json.NewDecoder(req.Body).Decode(&delivered))
			return httpmock.NewStringResponse(200, "ok"), nil
		})

	payload, err := json.Marshal(NewWebhook{
		Event:   model.EventEscrowReleased,
		Payload: model.NewDomainEvent(model.EventEscrowReleased, "esc_1", "active", "completed", map[string]interface{}{"net_amount": 59100000}),
	})
	assert.NoError(t, err)

	err = ProcessWebhook(context.Background(), asynq.NewTask("new:webhook", payload))
	assert.NoError(t, err)
	assert.Equal(t, model.EventEscrowReleased, delivered.Event)
}

func TestProcessWebhook_NoopWithoutURL(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	config.MockConfig(webhookConfig(""))

	err := ProcessWebhook(context.Background(), asynq.NewTask("new:webhook", []byte(`{"event":"escrow.funded"}`)))
	assert.NoError(t, err)
	assert.Zero(t, httpmock.GetTotalCallCount())
}

func TestProcessWebhook_NonSuccessStatusSwallowed(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	config.MockConfig(webhookConfig("http://localhost:5001/webhook"))
	httpmock.RegisterResponder("POST", "http://localhost:5001/webhook",
		httpmock.NewStringResponder(500, "downstream broken"))

	// Receiver failures are logged, not retried.
	err := ProcessWebhook(context.Background(), asynq.NewTask("new:webhook", []byte(`{"event":"escrow.funded"}`)))
	assert.NoError(t, err)
}
