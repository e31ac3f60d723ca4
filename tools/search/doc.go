// Copyright 2026 Fincrew Authors. All rights reserved.
// Use of this source code is governed by the project license.

// Package search 提供 web_search 工具的搜索后端: Tavily JSON API
// 与免密钥的 DuckDuckGo HTML 抓取。两者统一实现 Provider 接口,
// 支持主题(news/general)、回溯天数与站点限定。
package search
