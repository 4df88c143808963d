/*
Package gateway 是所有外部搜索与页面抓取的唯一出口。

Gateway 在 Client 外面加了三层：

  - 缓存：搜索按 NormalizeQuery(query)+"|"+limit 缓存，抓取按 URL 缓存；
    只缓存在超时前返回的非空成功结果。后端是 internal/cache.Store，
    默认进程内存，可换成 Redis。
  - 超时：每次调用在独立 goroutine 上执行，最多等待 Timeout（默认 60s），
    超时后放弃等待，迟到的结果被丢弃。
  - 失败吸收：超时记 [TIMEOUT]、错误记 [ERROR]、空结果记 [WARN]，
    Search 返回空切片，Fetch 返回 ok=false，调用方永远看不到错误。

同一 key 的并发调用通过 singleflight 合并为一次外部调用。

Client 有两个实现：FirecrawlClient 调用 Firecrawl 的搜索与抓取接口；
DirectClient 解析 DuckDuckGo HTML 结果页并直接下载页面。
*/
package gateway
