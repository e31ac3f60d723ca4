// Copyright 2026 Fincrew Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
Package loader 提供按扩展名路由的文档加载器。

内置 TextLoader（.txt 整文件）、MarkdownLoader（.md 按标题切分）、
CSVLoader（.csv 表头 + 按行成档）三种加载器, LoaderRegistry 统一路由
并实现 kb.SourceLoader。通过 Register 可挂接自定义扩展名。
*/
package loader
