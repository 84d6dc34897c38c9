// Package storage 定义存储层领域错误与存储接口
//
// 这些错误用于隔离业务层与底层存储引擎的错误类型，
// 各驱动实现（mongostore/memstore）负责将底层错误转换为这些领域错误。
package storage

import "errors"

var (
	// ErrNotFound 实体不存在
	// 替代 mongo.ErrNoDocuments
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate 唯一键冲突（email/username/order_number 撞上唯一索引）
	// 服务层的存在性预检查与 insert 之间存在竞态窗口，
	// 必须捕获本错误并按冲突处理（不可依赖预检查）。
	ErrDuplicate = errors.New("duplicate: entity already exists")
)
