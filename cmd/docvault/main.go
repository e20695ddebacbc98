// Package main 启动应用程序
package main

import "github.com/yeisme/docvault/pkg/cmd"

//	@title			DocVault API
//	@version		1.0
//	@description	DocVault 是一个文档管理服务，提供文件夹层级管理、文档上传与下载功能。
//	@BasePath		/

//	@license.name	MIT
//	@license.url	https://opensource.org/license/mit/

//	@contact.name	yeisme
//	@contact.email	yefun2004@gmail.com.

func main() {
	if err := cmd.Execute(); err != nil {
		panic(err)
	}
}
