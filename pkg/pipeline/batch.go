package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/mylxsw/asteria/log"
	"github.com/mylxsw/festival-server/pkg/imgutil"
)

// Progress 批量处理进度，只在每一批处理完成后由调用方所在的 goroutine 更新
type Progress struct {
	Completed int
	Total     int
	Last      Result
}

type BatchOptions struct {
	ProjectID   string
	Quality     int
	Concurrency int
	Resize      *imgutil.Resize
	OnProgress  func(progress Progress)
}

// ProcessBatch 按 Concurrency 分批处理，批内并发，批与批之间串行
// 返回结果与 urls 顺序一致，单张图片失败不影响其它图片
func (p *Processor) ProcessBatch(ctx context.Context, urls []string, opt BatchOptions) []Result {
	concurrency := opt.Concurrency
	if concurrency <= 0 {
		concurrency = p.batchSize
	}

	results := make([]Result, len(urls))
	for start := 0; start < len(urls); start += concurrency {
		end := min(start+concurrency, len(urls))

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				defer func() {
					if err := recover(); err != nil {
						log.F(log.M{"url": urls[i]}).Errorf("process image panic: %v", err)
						results[i] = failed(urls[i], fmt.Errorf("process image panic: %v", err))
					}
				}()

				results[i] = p.ProcessOne(ctx, urls[i], ProcessOptions{
					ProjectID: opt.ProjectID,
					Quality:   opt.Quality,
					Resize:    opt.Resize,
				})
			}(i)
		}
		wg.Wait()

		if opt.OnProgress != nil {
			opt.OnProgress(Progress{Completed: end, Total: len(urls), Last: results[end-1]})
		}
	}

	return results
}

// Succeeded 返回处理成功的图片
func Succeeded(results []Result) []ProcessedImage {
	images := make([]ProcessedImage, 0, len(results))
	for _, res := range results {
		if res.Success && res.Image != nil {
			images = append(images, *res.Image)
		}
	}

	return images
}
