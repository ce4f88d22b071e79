package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// IntegrationTestSuite provides a context, a temp directory and a fresh
// FakeAPI for every test in the suite.
type IntegrationTestSuite struct {
	suite.Suite
	ctx       context.Context
	cancel    context.CancelFunc
	tempDir   string
	startTime time.Time

	API *FakeAPI
}

// SetupSuite runs before all tests in the suite
func (s *IntegrationTestSuite) SetupSuite() {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 2*time.Minute)
	s.startTime = time.Now()

	tempDir, err := os.MkdirTemp("", "nebula-crm-test-*")
	require.NoError(s.T(), err)
	s.tempDir = tempDir
}

// SetupTest starts a new FakeAPI for each test
func (s *IntegrationTestSuite) SetupTest() {
	s.API = NewFakeAPI(s.T())
}

// TearDownSuite runs after all tests in the suite
func (s *IntegrationTestSuite) TearDownSuite() {
	s.cancel()
	if s.tempDir != "" {
		_ = os.RemoveAll(s.tempDir)
	}
	s.T().Logf("integration suite completed in %v", time.Since(s.startTime))
}

// Context returns the suite context
func (s *IntegrationTestSuite) Context() context.Context {
	return s.ctx
}

// TempDir returns the temporary directory path
func (s *IntegrationTestSuite) TempDir() string {
	return s.tempDir
}

// CreateTempFile writes content to name inside the temp directory.
func (s *IntegrationTestSuite) CreateTempFile(name string, content []byte) string {
	path := filepath.Join(s.tempDir, name)
	require.NoError(s.T(), os.WriteFile(path, content, 0o644))
	return path
}

// IntegrationTest skips the calling test in short mode.
func IntegrationTest(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

// ContactRows builds n source rows shaped like an ERP contact export, with
// alias-style keys and OData metadata the destination must drop.
func ContactRows(n int) []map[string]interface{} {
	rows := make([]map[string]interface{}, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, map[string]interface{}{
			"__metadata":   map[string]interface{}{"uri": fmt.Sprintf("Contacts(%d)", i)},
			"EmailAddress": fmt.Sprintf("contact%d@example.com", i),
			"first_name":   fmt.Sprintf("First%d", i),
			"last_name":    fmt.Sprintf("Last%d", i),
			"PhoneNumber":  "",
		})
	}
	return rows
}
