// Copyright 2020-2021 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sql holds the minimal row/schema/expression primitives the
// aggregate execution engine operates against. The planner, the catalog,
// the child operator and the expression evaluator it plugs into are all
// external collaborators; this package only fixes their interface shape.
package sql

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Context wraps a context.Context with the handful of cross-cutting
// concerns every component in this module needs: a logger, a query id used
// to tag log lines and metrics, and the plain Go context for cancellation.
//
// A Context is not safe for concurrent mutation of its fields, but reads
// (Done, Err, Logger) are safe from any goroutine; parallel workers each
// carry their own Context derived with WithWorker.
type Context struct {
	context.Context
	QueryID string
	WorkerID int
	log      *logrus.Entry
}

// NewContext builds a Context around an existing context.Context and a
// query identifier used to correlate log lines across components.
func NewContext(ctx context.Context, queryID string) *Context {
	return &Context{
		Context: ctx,
		QueryID: queryID,
		log:     logrus.WithField("query_id", queryID),
	}
}

// NewEmptyContext returns a Context suitable for tests: background
// context, no query id, a standalone logger.
func NewEmptyContext() *Context {
	return NewContext(context.Background(), "")
}

// WithWorker returns a derived Context tagged with a worker id, used by the
// Redistributor so every worker's log lines and metrics are attributable.
func (c *Context) WithWorker(id int) *Context {
	cp := *c
	cp.WorkerID = id
	cp.log = c.log.WithField("worker_id", id)
	return &cp
}

// Logger returns the structured logger for this context.
func (c *Context) Logger() *logrus.Entry {
	if c.log == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return c.log
}
