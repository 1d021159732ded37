/*
 * Copyright 2022 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package diag

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("closed")
}

func TestWriter_Lines(t *testing.T) {
	var buf bytes.Buffer
	s := Writer(&buf)
	s.Emit(Record{Pass: "licm", Event: "round", Message: "Iteration begin......"})
	s.Emit(Record{Pass: "divmul", Event: "match", Message: "Found Integer Division Instruction!", Fields: Fields{"to": "v.1", "from": "c"}})
	require.Equal(t, "[licm] Iteration begin......\n[divmul] Found Integer Division Instruction! (from=c to=v.1)\n", buf.String())
}

func TestWriter_IgnoresErrors(t *testing.T) {
	require.NotPanics(t, func() {
		Writer(failingWriter{}).Emit(Record{Pass: "x", Message: "y"})
	})
}

func TestLogger_Fields(t *testing.T) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	Logger(log, logrus.InfoLevel).Emit(Record{Pass: "loops", Event: "level", Message: "Loop Level 0 has 3 blocks", Fields: Fields{"depth": 0}})
	require.Len(t, hook.Entries, 1)

	e := hook.LastEntry()
	require.Equal(t, logrus.InfoLevel, e.Level)
	require.Equal(t, "Loop Level 0 has 3 blocks", e.Message)
	require.Equal(t, "loops", e.Data["pass"])
	require.Equal(t, "level", e.Data["event"])
	require.Equal(t, 0, e.Data["depth"])

	Logger(log, logrus.DebugLevel).Emit(Record{Pass: "licm", Event: "round"})
	require.Equal(t, logrus.DebugLevel, hook.LastEntry().Level)
}

func TestRecorder_Tee(t *testing.T) {
	var a, b Recorder
	s := Tee(&a, &b, OrDiscard(nil))
	s.Emit(Record{Event: "one"})
	s.Emit(Record{Event: "two"})
	require.Equal(t, []string{"one", "two"}, a.Events())
	require.Equal(t, a.Records, b.Records)
}
