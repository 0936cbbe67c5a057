package constants

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "retractor"

	// ParseModulePrefix 解析模块
	ParseModulePrefix = "parse"

	// EntityResult 解析结果实体
	EntityResult = "result"
	// EntityRequest 队列请求实体
	EntityRequest = "request"

	// KeyParseResult 解析结果缓存 (STRING, JSON)
	// 格式: retractor:parse:result:v{ParserVersion}:{contentMD5}
	KeyParseResult = AppPrefix + ":" + ParseModulePrefix + ":" + EntityResult + ":v%s:%s"

	// KeyParseRequestDone 已处理的队列请求，用于重复投递去重 (STRING)
	// 格式: retractor:parse:request:{requestID}
	KeyParseRequestDone = AppPrefix + ":" + ParseModulePrefix + ":" + EntityRequest + ":%s"
)
