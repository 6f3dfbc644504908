// MIT License
//
// Copyright (c) 2024-2026 CoordKit Authors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package lock

// The scripts below are the only writers of lock records. Each runs as
// one atomic unit on the store; no partial writes are observable.

// acquireScript grants the lease when the key is absent or logically
// expired, refreshes it when the caller already owns it, and otherwise
// leaves the record untouched.
//
// KEYS[1] lock key
// ARGV[1] owner token
// ARGV[2] full record JSON
// ARGV[3] ttl in milliseconds
// ARGV[4] new expiresAt in milliseconds since epoch
// ARGV[5] now in milliseconds since epoch
//
// Returns 1 acquired, 2 already held, 0 conflict.
const acquireScript = `
local current = redis.call('GET', KEYS[1])
if current then
  local record = cjson.decode(current)
  if tonumber(record.expiresAt) > tonumber(ARGV[5]) then
    if record.owner == ARGV[1] then
      record.expiresAt = tonumber(ARGV[4])
      redis.call('SET', KEYS[1], cjson.encode(record), 'PX', ARGV[3])
      return 2
    end
    return 0
  end
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`

// renewScript extends the lease only when the stored owner matches.
//
// KEYS[1] lock key
// ARGV[1] owner token
// ARGV[2] new expiresAt in milliseconds since epoch
// ARGV[3] ttl in milliseconds
//
// Returns 1 renewed, 0 lease lost.
const renewScript = `
local current = redis.call('GET', KEYS[1])
if not current then
  return 0
end
local record = cjson.decode(current)
if record.owner ~= ARGV[1] then
  return 0
end
record.expiresAt = tonumber(ARGV[2])
redis.call('SET', KEYS[1], cjson.encode(record), 'PX', ARGV[3])
return 1
`

// releaseScript deletes the lease only when the stored owner matches.
//
// KEYS[1] lock key
// ARGV[1] owner token
//
// Returns 1 released, 0 not owned.
const releaseScript = `
local current = redis.call('GET', KEYS[1])
if not current then
  return 0
end
local record = cjson.decode(current)
if record.owner ~= ARGV[1] then
  return 0
end
redis.call('DEL', KEYS[1])
return 1
`
