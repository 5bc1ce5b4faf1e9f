package ingest

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"go-adxlog/internal/config"

	kingest "github.com/Azure/azure-kusto-go/kusto/ingest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpointURIs(t *testing.T) {
	engine, dm, err := EndpointURIs("https://ingest-mycluster.westeurope.kusto.windows.net")
	require.NoError(t, err)
	assert.Equal(t, "https://mycluster.westeurope.kusto.windows.net", engine)
	assert.Equal(t, "https://ingest-mycluster.westeurope.kusto.windows.net", dm)

	engine, dm, err = EndpointURIs("https://mycluster.kusto.windows.net/")
	require.NoError(t, err)
	assert.Equal(t, "https://mycluster.kusto.windows.net", engine)
	assert.Equal(t, "https://ingest-mycluster.kusto.windows.net", dm)

	_, _, err = EndpointURIs("mycluster")
	assert.Error(t, err)
}

func TestConnectionDescriptors(t *testing.T) {
	opts := &config.Options{
		IngestionEndpointURI: "https://ingest-mycluster.kusto.windows.net",
		AuthMode:             config.AuthManagedIdentity,
	}

	d, err := ConnectionDescriptors(opts)
	require.NoError(t, err)
	assert.Equal(t, "https://mycluster.kusto.windows.net", d.EngineURI)
	assert.Equal(t, "https://ingest-mycluster.kusto.windows.net", d.DataManagementURI)
	require.NotNil(t, d.Engine)
	assert.Equal(t, d.EngineURI, d.Engine.DataSource)
	assert.True(t, d.Engine.MsiAuthentication)
}

func TestNewClient_BothModes(t *testing.T) {
	for _, mode := range []config.IngestionMode{config.IngestionQueued, config.IngestionStreaming} {
		t.Run(mode.String(), func(t *testing.T) {
			opts := &config.Options{
				Database:             "Logs",
				TableName:            "AppLogs",
				IngestionEndpointURI: "https://ingest-mycluster.kusto.windows.net",
				IngestionMode:        mode,
				AuthMode:             config.AuthAzCli,
			}

			client, err := NewClient(opts)
			require.NoError(t, err)
			assert.Equal(t, mode, client.Mode())

			kc, ok := client.(*kustoClient)
			require.True(t, ok)
			assert.NotNil(t, kc.query)
			if mode == config.IngestionStreaming {
				assert.IsType(t, &kingest.Managed{}, kc.ingestor)
			} else {
				assert.IsType(t, &kingest.Ingestion{}, kc.ingestor)
			}
			require.NoError(t, client.Close())
		})
	}
}

func TestNewClient_RejectsBadEndpoint(t *testing.T) {
	_, err := NewClient(&config.Options{IngestionEndpointURI: "mycluster"})
	assert.Error(t, err)
}

func TestCredentialAppliers_CoverEveryExplicitMode(t *testing.T) {
	for _, mode := range []config.AuthMode{config.AuthAadApplicationKey, config.AuthManagedIdentity, config.AuthAzCli, config.AuthDefaultCredential} {
		_, ok := credentialAppliers[mode]
		assert.True(t, ok, mode.String())
	}
	_, ok := credentialAppliers[config.AuthUnspecified]
	assert.False(t, ok)
}

func TestFileOptions(t *testing.T) {
	ref := Properties{Format: MultiJSON, Mapping: Mapping{Reference: "m"}, FlushImmediately: true}
	gz := StreamOptions{SourceID: uuid.New(), Compression: CompressionGZip}

	queued, err := fileOptions(config.IngestionQueued, ref, gz)
	require.NoError(t, err)
	assert.Len(t, queued, 4)

	streaming, err := fileOptions(config.IngestionStreaming, ref, gz)
	require.NoError(t, err)
	assert.Len(t, streaming, 4, "flush-immediately only applies to queued ingestion")
	assert.Equal(t, "ClientRequestId", streaming[3].String())

	noID, err := fileOptions(config.IngestionStreaming, ref, StreamOptions{Compression: CompressionGZip})
	require.NoError(t, err)
	assert.Len(t, noID, 3)

	inline := Properties{Format: MultiJSON, Mapping: Mapping{Columns: DefaultColumns()}}
	plain, err := fileOptions(config.IngestionQueued, inline, StreamOptions{})
	require.NoError(t, err)
	assert.Len(t, plain, 2)
}

type recordingIngestor struct {
	calls  int
	err    error
	closed int
}

func (r *recordingIngestor) FromReader(_ context.Context, reader io.Reader, _ ...kingest.FileOption) (*kingest.Result, error) {
	r.calls++
	_, _ = io.ReadAll(reader)
	return nil, r.err
}

func (r *recordingIngestor) Close() error {
	r.closed++
	return nil
}

type closeTracker struct {
	io.Reader
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}

func TestKustoClient_IngestFromStream(t *testing.T) {
	rec := &recordingIngestor{}
	client := &kustoClient{mode: config.IngestionQueued, ingestor: rec}
	props := Properties{Database: "db", Table: "t", Format: MultiJSON, Mapping: Mapping{Columns: DefaultColumns()}}

	stream := &closeTracker{Reader: strings.NewReader("{}")}
	require.NoError(t, client.IngestFromStream(context.Background(), stream, props, StreamOptions{SourceID: uuid.New()}))
	assert.True(t, stream.closed)
	assert.Equal(t, 1, rec.calls)

	kept := &closeTracker{Reader: strings.NewReader("{}")}
	require.NoError(t, client.IngestFromStream(context.Background(), kept, props, StreamOptions{LeaveOpen: true}))
	assert.False(t, kept.closed)

	rec.err = errors.New("throttled")
	err := client.IngestFromStream(context.Background(), strings.NewReader("{}"), props, StreamOptions{})
	assert.ErrorContains(t, err, "throttled")
	assert.ErrorContains(t, err, "db.t")

	require.NoError(t, client.Close())
	assert.Equal(t, 1, rec.closed)
	assert.Equal(t, config.IngestionQueued, client.Mode())
}
