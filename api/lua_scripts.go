package api

import "github.com/redis/go-redis/v9"

// EnqueueGenerationScript 用於原子性的建立課程生成任務
//  KEYS[1] - 課程的生成鎖
//  KEYS[2] - 生成任務的 stream
//  ARGV[1] - 任務 ID
//  ARGV[2] - 編碼後的任務內容
//  ARGV[3] - 生成鎖的過期秒數
//
// 返回值:
//  1 - 建立成功
//  0 - 課程已經在生成中
//
// 流程:
//  - 1. 檢查生成鎖是否存在
//  - 2a. 如果存在，返回0
//  - 2b. 如果不存在，建立生成鎖並設定過期時間
//  - 3. 將任務內容寫入stream
//  - 4. 返回1
var EnqueueGenerationScript = redis.NewScript(`
-- 檢查課程是否已經有生成任務在執行
local claimed = redis.call('EXISTS', KEYS[1])
if claimed == 1 then
    return 0
end

-- 建立生成鎖，過期時間確保worker異常終止時課程不會被永久佔住
redis.call('SET', KEYS[1], ARGV[1], 'EX', ARGV[3])

-- 將任務內容寫入 stream
redis.call('XADD', KEYS[2], '*', 'data', ARGV[2])

return 1
`)
