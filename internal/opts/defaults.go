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

package opts

import (
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/xyproto/env/v2"
)

const (
	_DefaultPasses = "divmul,licm" // the optimization pipeline run by Optimize
)

var (
	Verify       = boolOrDefault("REWIRE_VERIFY", true)
	LoopSimplify = boolOrDefault("REWIRE_LOOP_SIMPLIFY", false)
	LogLevel     = levelOrDefault("REWIRE_LOG_LEVEL", logrus.InfoLevel)
	Passes       = listOrDefault("REWIRE_PASSES", _DefaultPasses)
)

func boolOrDefault(key string, def bool) bool {
	if val := env.Str(key); val == "" {
		return def
	} else if ret, err := strconv.ParseBool(val); err != nil {
		panic("rewire: invalid value for " + key)
	} else {
		return ret
	}
}

func levelOrDefault(key string, def logrus.Level) logrus.Level {
	if val := env.Str(key); val == "" {
		return def
	} else if lv, err := logrus.ParseLevel(val); err != nil {
		panic("rewire: invalid value for " + key)
	} else {
		return lv
	}
}

func listOrDefault(key string, def string) []string {
	var ret []string
	for _, v := range strings.Split(env.Str(key, def), ",") {
		if v = strings.TrimSpace(v); v != "" {
			ret = append(ret, v)
		}
	}
	if len(ret) == 0 {
		panic("rewire: empty value for " + key)
	}
	return ret
}
