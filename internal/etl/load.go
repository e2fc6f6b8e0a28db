/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package etl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"loyalty-analytics-go/internal/metrics"
	"loyalty-analytics-go/internal/warehouse"

	"go.uber.org/zap"
)

var ErrHeaderMismatch = errors.New("csv header does not match warehouse columns")

// Load statuses
const (
	LoadSuccess = "success"
	LoadTimeout = "timeout"
	LoadPartial = "partial"
	loadFailed  = "failed"
)

// LoadResult is the per-table load status plus the overall outcome
type LoadResult struct {
	Tables map[string]string `json:"tables"`
	Status string            `json:"status"`
}

// CopyStatement truncates a warehouse table and bulk-loads it from a unified CSV.
// auth is the authorization clause, see CopyAuthClause.
func CopyStatement(schema string, table warehouse.Table, uri, auth string) string {
	return fmt.Sprintf("TRUNCATE TABLE %s.%s;\nCOPY %s.%s (%s)\nFROM '%s'\n%s\n"+
		"CSV IGNOREHEADER 1 BLANKSASNULL EMPTYASNULL TIMEFORMAT 'YYYY-MM-DDTHH:MI:SS';",
		schema, table.Name, schema, table.Name, table.ColumnList(), uri, auth)
}

// CopyAuthClause picks how the warehouse authenticates to the bucket.
// Explicit credentials (e.g. an S3-compatible key pair for an OSS bucket)
// win over an IAM role.
func CopyAuthClause(iamRole, credentials string) string {
	if credentials != "" {
		return fmt.Sprintf("CREDENTIALS '%s'", credentials)
	}
	return fmt.Sprintf("IAM_ROLE '%s'", iamRole)
}

func (p *Pipeline) objectUri(key string) string {
	return strings.TrimSuffix(p.opts.BucketUri, "/") + "/" + key
}

// Load bulk-loads every unified table, one statement per table. Each statement
// is polled until it finishes or the load timeout passes.
func (p *Pipeline) Load(ctx context.Context) (*LoadResult, error) {
	if p.opts.Executor == nil {
		return nil, fmt.Errorf("load requires a warehouse executor")
	}

	var commands strings.Builder
	commands.WriteString("-- Auto-generated COPY commands\n")
	commands.WriteString(fmt.Sprintf("-- Date: %s\n\n", p.now().Format(time.RFC3339)))
	for _, table := range warehouse.Tables {
		commands.WriteString(p.copyFor(table))
		commands.WriteString("\n\n")
	}
	if err := p.opts.Objects.Put(ctx, p.paths.CopyCommands(), []byte(commands.String()), contentTypeSQL); err != nil {
		return nil, fmt.Errorf("failed to write copy commands: %w", err)
	}

	result := &LoadResult{Tables: make(map[string]string, len(warehouse.Tables)), Status: LoadSuccess}
	for _, table := range warehouse.Tables {
		status := p.loadTable(ctx, table)
		result.Tables[table.Name] = status
		metrics.LoadStatements.WithLabelValues(table.Name, statusLabel(status)).Inc()
		if status != LoadSuccess {
			result.Status = LoadPartial
		}
	}

	zap.L().Info("Warehouse load finished",
		zap.String("date", p.paths.Date()),
		zap.String("status", result.Status))
	return result, nil
}

func (p *Pipeline) copyFor(table warehouse.Table) string {
	return CopyStatement(p.opts.Schema, table, p.objectUri(p.paths.Unified(table.Name)),
		CopyAuthClause(p.opts.IamRole, p.opts.CopyCredentials))
}

func (p *Pipeline) loadTable(ctx context.Context, table warehouse.Table) string {
	if err := p.validateHeader(ctx, table); err != nil {
		zap.L().Error("Skipping warehouse load",
			zap.String("table", table.Name),
			zap.Error(err))
		return failed(err)
	}

	id, err := p.opts.Executor.Execute(ctx, p.copyFor(table))
	if err != nil {
		zap.L().Error("Failed to submit load statement",
			zap.String("table", table.Name),
			zap.Error(err))
		return failed(err)
	}

	zap.L().Info("Submitted load statement",
		zap.String("table", table.Name),
		zap.String("statement_id", id))
	return p.await(ctx, table.Name, id)
}

// validateHeader checks the unified CSV header against the COPY column list.
func (p *Pipeline) validateHeader(ctx context.Context, table warehouse.Table) error {
	body, err := p.opts.Objects.Get(ctx, p.paths.Unified(table.Name))
	if err != nil {
		return fmt.Errorf("failed to read unified csv: %w", err)
	}
	header, _, err := decodeCSV(body)
	if err != nil {
		return err
	}

	want := table.ColumnNames()
	if len(header) != len(want) {
		return fmt.Errorf("%w: got %d columns, want %d", ErrHeaderMismatch, len(header), len(want))
	}
	for i := range want {
		if header[i] != want[i] {
			return fmt.Errorf("%w: column %d is %q, want %q", ErrHeaderMismatch, i+1, header[i], want[i])
		}
	}
	return nil
}

func (p *Pipeline) await(ctx context.Context, table, id string) string {
	ticker := time.NewTicker(p.opts.PollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(p.opts.LoadTimeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return failed(ctx.Err())
		case <-deadline.C:
			zap.L().Warn("Load statement timed out",
				zap.String("table", table),
				zap.String("statement_id", id))
			return LoadTimeout
		case <-ticker.C:
		}

		st, err := p.opts.Executor.Describe(ctx, id)
		if err != nil {
			return failed(err)
		}
		switch st.State {
		case warehouse.StatementFinished:
			return LoadSuccess
		case warehouse.StatementFailed:
			return failed(errors.New(st.Error))
		}
	}
}

func failed(err error) string {
	return fmt.Sprintf("%s: %v", loadFailed, err)
}

func statusLabel(status string) string {
	if strings.HasPrefix(status, loadFailed) {
		return loadFailed
	}
	return status
}
