package ingest

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"go-adxlog/internal/config"

	"github.com/Azure/azure-kusto-go/kusto"
	kingest "github.com/Azure/azure-kusto-go/kusto/ingest"
	"github.com/Azure/azure-kusto-go/kusto/ingest/ingestoptions"
	"github.com/google/uuid"
)

const ingestHostPrefix = "ingest-"

// Descriptors describe a cluster. Engine is the only connection builder the
// SDK accepts; it reaches the data-management endpoint by adding the ingest-
// prefix itself, so DataManagementURI is informational.
type Descriptors struct {
	EngineURI         string
	DataManagementURI string
	Engine            *kusto.ConnectionStringBuilder
}

// EndpointURIs derives the engine and data-management URIs from the configured
// ingestion endpoint. Either form may be configured.
func EndpointURIs(ingestionURI string) (engine, dataManagement string, err error) {
	u, err := url.Parse(ingestionURI)
	if err != nil {
		return "", "", fmt.Errorf("parse ingestion endpoint: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", "", fmt.Errorf("ingestion endpoint %q has no scheme or host", ingestionURI)
	}
	eng, dm := *u, *u
	if strings.HasPrefix(u.Host, ingestHostPrefix) {
		eng.Host = strings.TrimPrefix(u.Host, ingestHostPrefix)
	} else {
		dm.Host = ingestHostPrefix + u.Host
	}
	return strings.TrimRight(eng.String(), "/"), strings.TrimRight(dm.String(), "/"), nil
}

// credentialAppliers holds one handler per auth mode. AuthUnspecified has no
// entry; the SDK reports the missing credential when it connects.
var credentialAppliers = map[config.AuthMode]func(*kusto.ConnectionStringBuilder, *config.Options) *kusto.ConnectionStringBuilder{
	config.AuthAadApplicationKey: func(kcsb *kusto.ConnectionStringBuilder, o *config.Options) *kusto.ConnectionStringBuilder {
		return kcsb.WithAadAppKey(o.ApplicationClientID, o.ApplicationKey, o.Authority)
	},
	config.AuthManagedIdentity: func(kcsb *kusto.ConnectionStringBuilder, o *config.Options) *kusto.ConnectionStringBuilder {
		if o.ManagedIdentityClientID != "" {
			return kcsb.WithUserManagedIdentity(o.ManagedIdentityClientID)
		}
		return kcsb.WithSystemManagedIdentity()
	},
	config.AuthAzCli: func(kcsb *kusto.ConnectionStringBuilder, _ *config.Options) *kusto.ConnectionStringBuilder {
		return kcsb.WithAzCli()
	},
	config.AuthDefaultCredential: func(kcsb *kusto.ConnectionStringBuilder, _ *config.Options) *kusto.ConnectionStringBuilder {
		return kcsb.WithDefaultAzureCredential()
	},
}

func connectionBuilder(uri string, opts *config.Options) *kusto.ConnectionStringBuilder {
	kcsb := kusto.NewConnectionStringBuilder(uri)
	if apply, ok := credentialAppliers[opts.AuthMode]; ok {
		kcsb = apply(kcsb, opts)
	}
	return kcsb
}

// ConnectionDescriptors resolves both endpoints and builds the engine
// connection with the configured credentials.
func ConnectionDescriptors(opts *config.Options) (*Descriptors, error) {
	engine, dm, err := EndpointURIs(opts.IngestionEndpointURI)
	if err != nil {
		return nil, err
	}
	return &Descriptors{
		EngineURI:         engine,
		DataManagementURI: dm,
		Engine:            connectionBuilder(engine, opts),
	}, nil
}

// kustoIngestor is the method set shared by the SDK's queued and managed clients.
type kustoIngestor interface {
	FromReader(ctx context.Context, reader io.Reader, options ...kingest.FileOption) (*kingest.Result, error)
	Close() error
}

type kustoClient struct {
	mode     config.IngestionMode
	query    io.Closer
	ingestor kustoIngestor
}

// NewClient is the default Factory. Both modes share one query client on the
// engine endpoint. Streaming mode builds the SDK's managed streaming client,
// which falls back to queued ingestion on its own; queued mode builds the
// queued client, which talks to the data-management endpoint.
func NewClient(opts *config.Options) (Client, error) {
	d, err := ConnectionDescriptors(opts)
	if err != nil {
		return nil, err
	}
	qc, err := kusto.New(d.Engine)
	if err != nil {
		return nil, fmt.Errorf("create kusto client for %s: %w", d.EngineURI, err)
	}

	var ingestor kustoIngestor
	switch opts.IngestionMode {
	case config.IngestionStreaming:
		ingestor, err = kingest.NewManaged(qc, opts.Database, opts.TableName)
	default:
		ingestor, err = kingest.New(qc, opts.Database, opts.TableName)
	}
	if err != nil {
		_ = qc.Close()
		return nil, fmt.Errorf("create %s ingest client for %s: %w", opts.IngestionMode, d.DataManagementURI, err)
	}
	return &kustoClient{mode: opts.IngestionMode, query: qc, ingestor: ingestor}, nil
}

func (c *kustoClient) Mode() config.IngestionMode {
	return c.mode
}

func (c *kustoClient) IngestFromStream(ctx context.Context, r io.Reader, props Properties, opts StreamOptions) error {
	if closer, ok := r.(io.Closer); ok && !opts.LeaveOpen {
		defer closer.Close()
	}
	fileOpts, err := fileOptions(c.mode, props, opts)
	if err != nil {
		return err
	}
	if _, err := c.ingestor.FromReader(ctx, r, fileOpts...); err != nil {
		return fmt.Errorf("ingest %s into %s.%s: %w", opts.SourceID, props.Database, props.Table, err)
	}
	return nil
}

// Close releases the ingest client and then the query client it was built on.
func (c *kustoClient) Close() error {
	err := c.ingestor.Close()
	if c.query != nil {
		if qerr := c.query.Close(); err == nil {
			err = qerr
		}
	}
	return err
}

func fileOptions(mode config.IngestionMode, props Properties, opts StreamOptions) ([]kingest.FileOption, error) {
	fileOpts := []kingest.FileOption{kingest.FileFormat(kingest.MultiJSON)}

	if props.Mapping.IsReference() {
		fileOpts = append(fileOpts, kingest.IngestionMappingRef(props.Mapping.Reference, kingest.MultiJSON))
	} else if len(props.Mapping.Columns) > 0 {
		inline, err := props.Mapping.InlineJSON()
		if err != nil {
			return nil, fmt.Errorf("encode ingestion mapping: %w", err)
		}
		fileOpts = append(fileOpts, kingest.IngestionMapping(inline, kingest.MultiJSON))
	}

	if opts.Compression == CompressionGZip {
		fileOpts = append(fileOpts, kingest.CompressionType(ingestoptions.GZIP))
	}
	if props.FlushImmediately && mode == config.IngestionQueued {
		fileOpts = append(fileOpts, kingest.FlushImmediately())
	}
	if mode == config.IngestionStreaming && opts.SourceID != uuid.Nil {
		fileOpts = append(fileOpts, kingest.ClientRequestId(opts.SourceID.String()))
	}
	return fileOpts, nil
}
