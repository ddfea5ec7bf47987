// Package influx writes placement decision metrics and host-reported points to InfluxDB.
// When the server is unreachable points go to a gzipped line protocol backup file.
package influx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/OCAP2/siegelimit/internal/util"
	"github.com/OCAP2/siegelimit/pkg/core"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const (
	// DecisionBucket receives one point per placement decision.
	DecisionBucket = "siegelimit_decisions"
	// PerformanceBucket receives the status samples.
	PerformanceBucket = "siegelimit_performance"
	// ServerBucket receives host-reported server metrics.
	ServerBucket = "server_performance"

	retentionSeconds = 60 * 60 * 24 * 90
)

// DefaultBucketNames are the buckets created on connect.
var DefaultBucketNames = []string{
	DecisionBucket,
	PerformanceBucket,
	ServerBucket,
}

var (
	// ErrDisabled is returned by Connect when influx.enabled is false.
	ErrDisabled = errors.New("influx is disabled")
	// ErrUnknownBucket is returned for points addressed to a bucket that has no writer.
	ErrUnknownBucket = errors.New("influx bucket not registered")
	// ErrInvalidMetric is returned by ProcessMetricData for malformed host input.
	ErrInvalidMetric = errors.New("invalid metric")
)

// Config holds the influx.* settings.
type Config struct {
	Enabled  bool
	Protocol string
	Host     string
	Port     string
	Token    string
	Org      string
}

// ConfigFromViper reads the influx.* keys.
func ConfigFromViper() Config {
	return Config{
		Enabled:  viper.GetBool("influx.enabled"),
		Protocol: viper.GetString("influx.protocol"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
	}
}

// URL is the server base URL.
func (c Config) URL() string {
	return fmt.Sprintf("%s://%s:%s", c.Protocol, c.Host, c.Port)
}

// Manager handles InfluxDB connections and writes.
type Manager struct {
	Client      influxdb2.Client
	Writers     map[string]influxdb2_api.WriteAPI
	BucketNames []string
	Logger      zerolog.Logger
	BackupPath  string

	cfg        Config
	mu         sync.Mutex
	valid      bool
	backupFile *os.File
	backup     *gzip.Writer
}

// NewManager creates a new InfluxDB manager.
func NewManager(log zerolog.Logger, cfg Config, backupPath string) *Manager {
	return &Manager{
		Writers:     make(map[string]influxdb2_api.WriteAPI),
		BucketNames: DefaultBucketNames,
		Logger:      log,
		BackupPath:  backupPath,
		cfg:         cfg,
	}
}

// IsValid reports whether points go to the server rather than the backup file.
func (m *Manager) IsValid() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.valid
}

// Connect establishes a connection to InfluxDB, falling back to the backup file.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}

	m.Client = influxdb2.NewClientWithOptions(
		m.cfg.URL(),
		m.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(500).
			SetFlushInterval(1000),
	)

	running, err := m.Client.Ping(ctx)
	if err != nil || !running {
		m.Logger.Warn().Err(err).Str("backupPath", m.BackupPath).
			Msg("InfluxDB unreachable, writing to backup file")
		return m.openBackup()
	}

	if err := m.setupOrganizationAndBuckets(ctx); err != nil {
		return err
	}
	m.createWriters()

	m.mu.Lock()
	m.valid = true
	m.mu.Unlock()

	m.Logger.Info().Str("url", m.cfg.URL()).Msg("InfluxDB client initialized")
	return nil
}

func (m *Manager) openBackup() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.backup != nil {
		return nil
	}
	if m.BackupPath == "" {
		return fmt.Errorf("influx unreachable and no backup path set")
	}

	file, err := os.OpenFile(m.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.backupFile = file
	m.backup = gzip.NewWriter(file)
	return nil
}

func (m *Manager) setupOrganizationAndBuckets(ctx context.Context) error {
	orgName := m.cfg.Org

	influxOrg, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Info().Str("org", orgName).Msg("Organization not found, creating")
		influxOrg, err = m.Client.OrganizationsAPI().CreateOrganizationWithName(ctx, orgName)
		if err != nil {
			m.Logger.Error().Err(err).Str("org", orgName).Msg("Error creating organization")
			return fmt.Errorf("create organization %s: %w", orgName, err)
		}
	}

	for _, bucket := range m.BucketNames {
		if _, err := m.Client.BucketsAPI().FindBucketByName(ctx, bucket); err == nil {
			continue
		}
		m.Logger.Info().Str("bucket", bucket).Msg("Bucket not found, creating")

		rule := domain.RetentionRuleTypeExpire
		_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, influxOrg, bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: retentionSeconds,
		})
		if err != nil {
			m.Logger.Error().Err(err).Str("bucket", bucket).Msg("Error creating bucket")
			return fmt.Errorf("create bucket %s: %w", bucket, err)
		}
	}

	return nil
}

// createWriters creates a non-blocking write API per bucket and logs its async errors.
func (m *Manager) createWriters() {
	for _, bucket := range m.BucketNames {
		w := m.Client.WriteAPI(m.cfg.Org, bucket)
		m.Writers[bucket] = w

		go func(bucketName string, errorsCh <-chan error) {
			for writeErr := range errorsCh {
				m.Logger.Error().Err(writeErr).Str("bucket", bucketName).
					Msg("Error sending data to InfluxDB")
			}
		}(bucket, w.Errors())
	}

	m.Logger.Debug().Int("buckets", len(m.Writers)).Msg("InfluxDB writers initialized")
}

// WritePoint writes a point to InfluxDB or the backup file.
func (m *Manager) WritePoint(bucket string, point *influxdb2_write.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.valid {
		w, ok := m.Writers[bucket]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownBucket, bucket)
		}
		w.WritePoint(point)
		return nil
	}

	if m.backup == nil {
		return fmt.Errorf("influxDB client not initialized and backup writer not available")
	}

	// the bucket is kept as a tag so the backup can be replayed
	point.AddTag("bucket", bucket)
	lineProtocol := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := m.backup.Write([]byte(lineProtocol)); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// WriteDecision records a placement decision in the decisions bucket.
func (m *Manager) WriteDecision(rec core.DecisionRecord, worldName string) error {
	return m.WritePoint(DecisionBucket, DecisionPoint(rec, worldName))
}

// Close flushes the writers and the backup file.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, w := range m.Writers {
		w.Flush()
	}
	m.Writers = make(map[string]influxdb2_api.WriteAPI)
	if m.Client != nil {
		m.Client.Close()
		m.Client = nil
	}

	var errs []error
	if m.backup != nil {
		errs = append(errs, m.backup.Close())
		errs = append(errs, m.backupFile.Close())
		m.backup = nil
		m.backupFile = nil
	}
	m.valid = false
	return errors.Join(errs...)
}

// DecisionPoint converts a decision into a point tagged by kind and outcome.
func DecisionPoint(rec core.DecisionRecord, worldName string) *influxdb2_write.Point {
	t := rec.Time
	if t.IsZero() {
		t = time.Now()
	}

	p := influxdb2_write.NewPointWithMeasurement("placement_decision").
		AddTag("kind", rec.Candidate.Kind).
		AddTag("reason", rec.Decision.Reason.String()).
		AddTag("allowed", strconv.FormatBool(rec.Decision.Allowed)).
		AddField("nearby", rec.Decision.Nearby).
		AddField("max_nearby", rec.MaxNearby).
		AddField("check_radius", rec.CheckRadius).
		AddField("duration_us", rec.Duration.Microseconds()).
		AddField("x", rec.Candidate.Position.X).
		AddField("y", rec.Candidate.Position.Y).
		AddField("actor", rec.Candidate.ActorID).
		SetTime(t)
	if worldName != "" {
		p.AddTag("world", worldName)
	}
	return p
}

// ProcessMetricData parses a host metric into a bucket name and point.
//
//	0 = bucket name
//	1 = measurement name
//	"tag::<name>::<value>"
//	"field::<type>::<name>::<value>" with type string, int, float or bool
func ProcessMetricData(data []string) (bucket string, point *influxdb2_write.Point, err error) {
	if len(data) < 2 {
		return "", nil, fmt.Errorf("%w: need bucket and measurement, got %d args", ErrInvalidMetric, len(data))
	}
	data = util.CleanArgs(data)

	bucket = data[0]
	if bucket == "" || data[1] == "" {
		return "", nil, fmt.Errorf("%w: empty bucket or measurement", ErrInvalidMetric)
	}
	point = influxdb2_write.NewPointWithMeasurement(data[1])

	fields := 0
	for _, item := range data[2:] {
		parts := strings.Split(item, "::")
		switch {
		case parts[0] == "tag" && len(parts) >= 3:
			point.AddTag(parts[1], strings.Join(parts[2:], "::"))
		case parts[0] == "field" && len(parts) >= 4:
			fieldType, fieldName := parts[1], parts[2]
			fieldValue := strings.Join(parts[3:], "::")
			if err := addField(point, fieldType, fieldName, fieldValue); err != nil {
				return "", nil, err
			}
			fields++
		}
	}

	if fields == 0 {
		return "", nil, fmt.Errorf("%w: measurement %s has no fields", ErrInvalidMetric, data[1])
	}
	point.SetTime(time.Now())
	return bucket, point, nil
}

func addField(point *influxdb2_write.Point, fieldType, name, value string) error {
	switch fieldType {
	case "string":
		point.AddField(name, value)
	case "int":
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: field %s value %q is not an int", ErrInvalidMetric, name, value)
		}
		point.AddField(name, v)
	case "float":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%w: field %s value %q is not a float", ErrInvalidMetric, name, value)
		}
		point.AddField(name, v)
	case "bool":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: field %s value %q is not a bool", ErrInvalidMetric, name, value)
		}
		point.AddField(name, v)
	default:
		return fmt.Errorf("%w: unknown field type %q", ErrInvalidMetric, fieldType)
	}
	return nil
}
