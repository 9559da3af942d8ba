package stream

import (
	"bufio"
	"bytes"
	"io"

	"github.com/segmentio/encoding/json"
)

// SSE 行前缀。服务端格式固定：named event + JSON data + 空行结尾，
// 冒号开头的行是注释/心跳。
var (
	prefixEvent   = []byte("event: ")
	prefixData    = []byte("data: ")
	prefixID      = []byte("id: ")
	prefixComment = []byte(":")
)

// Decoder 把一条连接上的文本行流切成 Frame。
// 每条连接新建一个 Decoder；跨重连不复用。
type Decoder struct {
	sc *bufio.Scanner

	// OnActivity 每收到任意一行（含注释/心跳）时回调，用于喂 idle 检测。
	OnActivity func()
	// OnDecodeError payload 不是合法 JSON 时回调；该帧被丢弃，连接不受影响。
	OnDecodeError func()

	name string
	id   string
	data [][]byte
}

func NewDecoder(r io.Reader) *Decoder {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20) // 单行最大 1MB，防御超大 payload
	return &Decoder{sc: sc}
}

// Next 阻塞读取并返回下一条完整帧。流结束返回 io.EOF，
// 底层读错误原样返回。空帧（没有 event 名或没有 data 行）直接丢弃。
func (d *Decoder) Next() (Frame, error) {
	for d.sc.Scan() {
		line := d.sc.Bytes()
		if d.OnActivity != nil {
			d.OnActivity()
		}

		// 空行 = 帧边界
		if len(bytes.TrimSpace(line)) == 0 {
			f, ok := d.flush()
			if !ok {
				continue
			}
			if !json.Valid(f.Data) {
				if d.OnDecodeError != nil {
					d.OnDecodeError()
				}
				continue
			}
			return f, nil
		}

		switch {
		case bytes.HasPrefix(line, prefixEvent):
			d.name = string(bytes.TrimSpace(line[len(prefixEvent):]))
		case bytes.HasPrefix(line, prefixData):
			// 多行 data 按约定用 '\n' 拼接
			d.data = append(d.data, append([]byte(nil), bytes.TrimSpace(line[len(prefixData):])...))
		case bytes.HasPrefix(line, prefixID):
			d.id = string(bytes.TrimSpace(line[len(prefixID):]))
		case bytes.HasPrefix(line, prefixComment):
			// 注释/心跳：只算活跃，不进帧
		default:
			// 未知字段，向前兼容，忽略
		}
	}
	if err := d.sc.Err(); err != nil {
		return Frame{}, err
	}
	return Frame{}, io.EOF
}

// flush 取出累积的帧。name 和至少一条 data 行都齐了才算有效帧。
func (d *Decoder) flush() (Frame, bool) {
	name, id, data := d.name, d.id, d.data
	d.name, d.id, d.data = "", "", nil

	if name == "" || len(data) == 0 {
		return Frame{}, false
	}
	return Frame{Name: name, ID: id, Data: bytes.Join(data, []byte("\n"))}, true
}
