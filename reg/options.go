// Copyright 2025 go-highway Authors
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

package reg

import "github.com/ajroetker/go-registration/reg/contrib/workerpool"

// Options carries the execution context shared by every kernel call.
type Options struct {
	Pool   *workerpool.Pool
	Logger *Logger
}

// Option configures a kernel call.
type Option func(*Options)

// WithPool runs the call on p instead of the shared default pool.
func WithPool(p *workerpool.Pool) Option {
	return func(o *Options) {
		o.Pool = p
	}
}

// WithLogger sends kernel diagnostics to l.
//
// If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *Options) {
		if l == nil {
			l = NoopLogger()
		}
		o.Logger = l
	}
}

// ApplyOptions resolves opts over the defaults: the process-wide pool and a
// no-op logger.
func ApplyOptions(opts ...Option) Options {
	var o Options
	for _, fn := range opts {
		fn(&o)
	}
	if o.Pool == nil {
		o.Pool = workerpool.Default()
	}
	if o.Logger == nil {
		o.Logger = noop
	}
	return o
}

var noop = NoopLogger()
