package queue

// 主题命名规范：dv.<域>.<动作>，尽量稳定且向后兼容.
const (
	TopicItemCreated        = "dv.item.created"        // 文件夹或文档条目已创建（含仅元数据的文档）
	TopicDocumentUploaded   = "dv.document.uploaded"   // 文档内容已写入存储并登记
	TopicItemDeleted        = "dv.item.deleted"        // 条目（及其全部后代）已删除
	TopicRegistryReconciled = "dv.registry.reconciled" // 对账任务完成
)

// AllTopics 返回全部主题，供命令行与消费者注册使用.
func AllTopics() []string {
	return []string{
		TopicItemCreated,
		TopicDocumentUploaded,
		TopicItemDeleted,
		TopicRegistryReconciled,
	}
}
