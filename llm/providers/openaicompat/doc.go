// Copyright 2026 Fincrew Authors. All rights reserved.
// Use of this source code is governed by the project license.

// Package openaicompat implements a reusable base Provider for any LLM
// service exposing an OpenAI-compatible chat completions API. Concrete
// providers embed *Provider and customize behavior through Config hooks
// (BuildHeaders, RequestHook) instead of reimplementing HTTP plumbing.
package openaicompat
