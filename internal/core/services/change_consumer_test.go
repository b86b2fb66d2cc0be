package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"spec-registry-service/internal/adapters/secondary/memory"
	"spec-registry-service/internal/adapters/secondary/xlsx"
	"spec-registry-service/internal/core/codec"
	"spec-registry-service/internal/core/domain"
	"spec-registry-service/internal/core/ports/output"
	"spec-registry-service/internal/testutil"
)

const templateKey = "templates/default.xlsx"

type pipeline struct {
	table    *memory.Table
	blobs    *memory.BlobStore
	queue    *memory.Queue
	store    RecordStore
	consumer *ChangeConsumer
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
}

func (o *recordingObserver) ObserveRender(outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func newPipeline(t *testing.T, opts ...ConsumerOption) *pipeline {
	t.Helper()
	p := &pipeline{
		table: memory.NewTable(ports.SpecificationsSchema("specifications")),
		blobs: memory.NewBlobStore("bucket"),
		queue: memory.NewQueue(),
	}
	p.store = NewRecordStore(p.table)
	require.NoError(t, p.blobs.Put(context.Background(), templateKey, testutil.Workbook(t, map[string]string{
		"A1": "{{brand_name}}",
		"A2": "{{product_name}}",
		"A3": "{{fabric.materials.0.name}}",
	}), ""))
	renderer := NewRenderService(xlsx.NewBlobTemplates(p.blobs, "templates/", templateKey), xlsx.NewFiller())
	p.consumer = NewChangeConsumer(p.queue, p.store, p.blobs, renderer, opts...)
	return p
}

func (p *pipeline) seed(t *testing.T, tenant string) *domain.Specification {
	t.Helper()
	spec := &domain.Specification{
		TenantID:        tenant,
		SpecificationID: domain.NewID(),
		BrandName:       "Acme",
		ProductName:     "Tee",
		ProductCode:     "T-1",
		Status:          domain.StatusDraft,
		GroupID:         domain.NoGroup,
		Attributes: codec.Map{
			"fabric": codec.Map{"materials": codec.List{codec.Map{"name": codec.String("cotton")}}},
		},
	}
	require.NoError(t, p.table.Put(context.Background(), spec.ToItem()))
	return spec
}

func (p *pipeline) enqueue(t *testing.T, spec *domain.Specification) {
	t.Helper()
	ev := domain.ChangeEvent{SpecificationID: spec.SpecificationID, TenantID: spec.TenantID}
	body, err := ev.Body()
	require.NoError(t, err)
	require.NoError(t, p.queue.Send(context.Background(), body, ev.Attributes()))
}

func TestChangeConsumer_Handle_RendersAndRepoints(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	spec := p.seed(t, "T1")

	outcome, key, err := p.consumer.Handle(ctx, domain.ChangeEvent{SpecificationID: spec.SpecificationID, TenantID: "T1"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, outcome)
	assert.Regexp(t, `^T1/`+spec.SpecificationID+`/artifacts/[0-9a-f-]{36}\.xlsx$`, key)

	got, err := p.store.GetSpecification(ctx, spec.Key())
	require.NoError(t, err)
	require.NotNil(t, got.Artifact)
	assert.Equal(t, key, got.Artifact.ObjectKey)

	body, err := p.blobs.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "Acme", testutil.CellText(t, body, "Sheet1", "A1"))
	assert.Equal(t, "Tee", testutil.CellText(t, body, "Sheet1", "A2"))
	assert.Equal(t, "cotton", testutil.CellText(t, body, "Sheet1", "A3"))
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", p.blobs.ContentType(key))
}

func TestChangeConsumer_DuplicateEventsAreIdempotent(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	spec := p.seed(t, "T1")
	ev := domain.ChangeEvent{SpecificationID: spec.SpecificationID, TenantID: "T1"}

	_, first, err := p.consumer.Handle(ctx, ev)
	require.NoError(t, err)
	_, second, err := p.consumer.Handle(ctx, ev)
	require.NoError(t, err)
	assert.NotEqual(t, first, second, "every render gets a fresh key")

	got, err := p.store.GetSpecification(ctx, spec.Key())
	require.NoError(t, err)
	assert.Equal(t, second, got.Artifact.ObjectKey)
	assert.Equal(t, "Acme", got.BrandName)
	assert.Equal(t, spec.Attributes, got.Attributes)

	// The pointer always references a blob that exists.
	_, err = p.blobs.Get(ctx, got.Artifact.ObjectKey)
	assert.NoError(t, err)
	_, err = p.blobs.Get(ctx, first)
	assert.NoError(t, err, "earlier renders are never overwritten")
}

func TestChangeConsumer_Handle_DeletedRecordIsTerminal(t *testing.T) {
	p := newPipeline(t)
	outcome, _, err := p.consumer.Handle(context.Background(), domain.ChangeEvent{SpecificationID: domain.NewID(), TenantID: "T1"})
	assert.Equal(t, OutcomeFailed, outcome)
	assert.ErrorIs(t, err, domain.ErrSpecificationNotFound)
}

func TestChangeConsumer_Handle_CorruptRecordIsTerminal(t *testing.T) {
	p := newPipeline(t)
	id := domain.NewID()
	require.NoError(t, p.table.Put(context.Background(), codec.Item{
		domain.AttrTenantID:        codec.S("T1"),
		domain.AttrSpecificationID: codec.S(id),
		"fit":                      {Tag: "B"},
	}))

	outcome, _, err := p.consumer.Handle(context.Background(), domain.ChangeEvent{SpecificationID: id, TenantID: "T1"})
	assert.Equal(t, OutcomeFailed, outcome)
	assert.ErrorIs(t, err, codec.ErrDecode)
}

func TestChangeConsumer_Handle_MissingTemplateIsTerminal(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	require.NoError(t, p.blobs.DeletePrefix(ctx, "templates/"))
	spec := p.seed(t, "T1")

	outcome, _, err := p.consumer.Handle(ctx, domain.ChangeEvent{SpecificationID: spec.SpecificationID, TenantID: "T1"})
	assert.Equal(t, OutcomeFailed, outcome)
	assert.ErrorIs(t, err, domain.ErrTemplateNotFound)
}

func TestChangeConsumer_Handle_UploadFailureWritesNoPointer(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	spec := p.seed(t, "T1")

	blobs := new(testutil.MockBlobStore)
	blobs.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(domain.ErrTransientBlob)
	renderer := NewRenderService(xlsx.NewBlobTemplates(p.blobs, "templates/", templateKey), xlsx.NewFiller())
	consumer := NewChangeConsumer(p.queue, p.store, blobs, renderer)

	outcome, _, err := consumer.Handle(ctx, domain.ChangeEvent{SpecificationID: spec.SpecificationID, TenantID: "T1"})
	assert.Equal(t, OutcomeRetry, outcome)
	assert.ErrorIs(t, err, domain.ErrTransientBlob)

	got, err := p.store.GetSpecification(ctx, spec.Key())
	require.NoError(t, err)
	assert.Nil(t, got.Artifact)
}

func TestChangeConsumer_Handle_PointerUpdateFailureIsRetryable(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	spec := p.seed(t, "T1")
	item := spec.ToItem()

	table := new(testutil.MockTable)
	table.On("Get", mock.Anything, spec.Key()).Return(item, nil)
	table.On("Update", mock.Anything, spec.Key(), mock.Anything).Return(domain.ErrTransientStore)
	renderer := NewRenderService(xlsx.NewBlobTemplates(p.blobs, "templates/", templateKey), xlsx.NewFiller())
	consumer := NewChangeConsumer(p.queue, NewRecordStore(table), p.blobs, renderer)

	outcome, _, err := consumer.Handle(ctx, domain.ChangeEvent{SpecificationID: spec.SpecificationID, TenantID: "T1"})
	assert.Equal(t, OutcomeRetry, outcome)
	assert.ErrorIs(t, err, domain.ErrTransientStore)

	// The uploaded render is left behind unreferenced.
	keys, err := p.blobs.List(ctx, domain.ArtifactPrefix("T1", spec.SpecificationID))
	require.NoError(t, err)
	assert.Len(t, keys, 1)
	table.AssertExpectations(t)
}

func TestChangeConsumer_Handle_TransientReadIsRetryable(t *testing.T) {
	table := new(testutil.MockTable)
	table.On("Get", mock.Anything, mock.Anything).Return(nil, domain.ErrTransientStore)
	p := newPipeline(t)
	consumer := NewChangeConsumer(p.queue, NewRecordStore(table), p.blobs, nil)

	outcome, _, err := consumer.Handle(context.Background(), domain.ChangeEvent{SpecificationID: domain.NewID(), TenantID: "T1"})
	assert.Equal(t, OutcomeRetry, outcome)
	assert.ErrorIs(t, err, domain.ErrTransientStore)
}

func TestChangeConsumer_Poll_SettlesMessages(t *testing.T) {
	ctx := context.Background()
	obs := &recordingObserver{}
	p := newPipeline(t, WithObserver(obs), WithWorkers(2))
	a := p.seed(t, "T1")
	b := p.seed(t, "T1")
	p.enqueue(t, a)
	p.enqueue(t, b)
	p.enqueue(t, &domain.Specification{TenantID: "T1", SpecificationID: domain.NewID()})
	require.NoError(t, p.queue.Send(ctx, []byte("not json"), nil))

	n, err := p.consumer.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 0, p.queue.Len(), "completed and terminal messages are acked")

	assert.ElementsMatch(t, []string{"completed", "completed", "failed", "failed"}, obs.outcomes)
	for _, spec := range []*domain.Specification{a, b} {
		got, err := p.store.GetSpecification(ctx, spec.Key())
		require.NoError(t, err)
		assert.NotNil(t, got.Artifact)
	}
}

func TestChangeConsumer_Poll_ReleasesRetryable(t *testing.T) {
	ctx := context.Background()
	queue := new(testutil.MockChangeQueue)
	table := new(testutil.MockTable)
	msg := ports.Message{
		ID:   "m1",
		Body: []byte(`{"specification_id":"` + domain.NewID() + `","tenant_id":"T1"}`),
	}
	queue.On("Receive", mock.Anything, 10).Return([]ports.Message{msg}, nil)
	queue.On("Release", mock.Anything, msg).Return(nil)
	table.On("Get", mock.Anything, mock.Anything).Return(nil, domain.ErrTransientStore)

	consumer := NewChangeConsumer(queue, NewRecordStore(table), nil, nil)
	n, err := consumer.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	queue.AssertExpectations(t)
	queue.AssertNotCalled(t, "Ack", mock.Anything, mock.Anything)
}

func TestChangeConsumer_Poll_ReceiveError(t *testing.T) {
	queue := new(testutil.MockChangeQueue)
	queue.On("Receive", mock.Anything, 10).Return(nil, errors.New("connection reset"))

	consumer := NewChangeConsumer(queue, NewRecordStore(nil), nil, nil)
	n, err := consumer.Poll(context.Background())
	assert.Error(t, err)
	assert.Zero(t, n)
}

func TestChangeConsumer_Process_LegacyEvent(t *testing.T) {
	p := newPipeline(t)
	spec := p.seed(t, "T1")
	msg := ports.Message{Body: []byte(`{"specification_id":"` + spec.SpecificationID + `","tenant_status":"T1#DRAFT"}`)}

	outcome, err := p.consumer.Process(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, outcome)
}

func TestChangeConsumer_Run_StopsOnCancel(t *testing.T) {
	p := newPipeline(t)
	spec := p.seed(t, "T1")
	p.enqueue(t, spec)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.consumer.Run(ctx) }()

	assert.Eventually(t, func() bool { return p.queue.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
}
