package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// ParseJSON 解析 JSON 字符串到結構體
func ParseJSON(data string, v interface{}) error {
	return decodeJSON(strings.NewReader(data), v, false)
}

// ParseJSONBytes 解析 JSON 位元組切片到結構體
func ParseJSONBytes(data []byte, v interface{}) error {
	return decodeJSON(bytes.NewReader(data), v, false)
}

// DecodeJSON 使用統一設定解析 JSON
func DecodeJSON(r io.Reader, v interface{}) error {
	return decodeJSON(r, v, false)
}

// DecodeJSONStrict 使用統一設定解析 JSON，禁止未知欄位
func DecodeJSONStrict(r io.Reader, v interface{}) error {
	return decodeJSON(r, v, true)
}

func decodeJSON(r io.Reader, v interface{}, disallowUnknown bool) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if disallowUnknown {
		dec.DisallowUnknownFields()
	}

	if err := dec.Decode(v); err != nil {
		return err
	}

	// 確保沒有多餘資料
	if _, err := dec.Token(); err != io.EOF {
		if err != nil {
			return err
		}
		return fmt.Errorf("unexpected extra JSON data")
	}
	return nil
}

var (
	openingFencePattern = regexp.MustCompile("^```[A-Za-z]*[ \t]*\r?\n?")
	closingFencePattern = regexp.MustCompile("\r?\n?```$")
)

// StripCodeFence 移除模型回覆中可能出現的 markdown code fence
func StripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	s = openingFencePattern.ReplaceAllString(s, "")
	s = closingFencePattern.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// ParseModelJSON 先去除 code fence 再解析模型輸出的 JSON
func ParseModelJSON(raw string, v interface{}) error {
	cleaned := StripCodeFence(raw)
	if cleaned == "" {
		return fmt.Errorf("empty model output")
	}
	return ParseJSON(cleaned, v)
}

// ToJSON 將結構體轉換為 JSON 字符串
func ToJSON(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
