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

package expression

import (
	"fmt"

	"github.com/dolthub/aggexec/sql"
)

// GetField reads one column out of the row by ordinal position, the
// leaf expression every grouping-key and aggregate-argument reference
// bottoms out at.
type GetField struct {
	index    int
	fieldType sql.Type
	name     string
	nullable bool
}

func NewGetField(index int, fieldType sql.Type, name string, nullable bool) *GetField {
	return &GetField{index: index, fieldType: fieldType, name: name, nullable: nullable}
}

func (f *GetField) Index() int        { return f.index }
func (f *GetField) Type() sql.Type    { return f.fieldType }
func (f *GetField) Resolved() bool    { return true }
func (f *GetField) Children() []sql.Expression { return nil }
func (f *GetField) String() string    { return f.name }

func (f *GetField) Eval(ctx *sql.Context, row sql.Row) (interface{}, error) {
	if f.index < 0 || f.index >= len(row) {
		return nil, fmt.Errorf("expression: field index %d out of range for row of length %d", f.index, len(row))
	}
	return row[f.index], nil
}
