package engine

import "testing"

// TestClassifyErrorToken 测试错误令牌到稳定错误码的映射
func TestClassifyErrorToken(t *testing.T) {
	cases := []struct {
		token string
		code  string
	}{
		{"#DIV/0!", CodeDivByZero},
		{"#N/A", CodeUnavailable},
		{"#NAME?", CodeNameUnknown},
		{"#NULL!", CodeNullIntersection},
		{"#NUM!", CodeNumInvalid},
		{"#REF!", CodeRefInvalid},
		{"#VALUE!", CodeValueType},
		{"#CIRCULAR!", CodeCircularRef},
	}

	for _, tc := range cases {
		e := ClassifyErrorToken(tc.token)
		if e.Code != tc.code {
			t.Errorf("ClassifyErrorToken(%q).Code = %q, want %q", tc.token, e.Code, tc.code)
		}
		if e.Token != tc.token {
			t.Errorf("ClassifyErrorToken(%q).Token = %q, want %q", tc.token, e.Token, tc.token)
		}
		if e.Category == "" {
			t.Errorf("ClassifyErrorToken(%q) should carry a category", tc.token)
		}
	}

	// 未知令牌退化为 UNKNOWN 但保留原文
	e := ClassifyErrorToken("#WEIRD!")
	if e.Code != CodeUnknown {
		t.Errorf("unknown token code = %q, want UNKNOWN", e.Code)
	}
	if e.Token != "#WEIRD!" {
		t.Errorf("unknown token text = %q, want #WEIRD!", e.Token)
	}
}

// TestClassifyEngineError 测试引擎内部错误信息的归类
func TestClassifyEngineError(t *testing.T) {
	cases := []struct {
		message string
		code    string
	}{
		{"#DIV/0!", CodeDivByZero},
		{"division by zero", CodeDivByZero},
		{"formula not valid: #REF!", CodeRefInvalid},
		{"not support FOOBAR function", CodeNameUnknown},
		{"circular reference detected", CodeCircularRef},
		{"#VALUE!", CodeValueType},
		{"something nobody expected", CodeUnknown},
	}

	for _, tc := range cases {
		e := ClassifyEngineError(tc.message)
		if e.Code != tc.code {
			t.Errorf("ClassifyEngineError(%q).Code = %q, want %q", tc.message, e.Code, tc.code)
		}
		if e.Message != tc.message {
			t.Errorf("ClassifyEngineError(%q) should keep the raw message", tc.message)
		}
	}
}

// TestIsErrorToken 测试错误令牌识别
func TestIsErrorToken(t *testing.T) {
	if !IsErrorToken("#DIV/0!") {
		t.Error("IsErrorToken(#DIV/0!) should be true")
	}
	if IsErrorToken("#not an error") {
		t.Error("IsErrorToken(#not an error) should be false")
	}
	if IsErrorToken("100") {
		t.Error("IsErrorToken(100) should be false")
	}
}

// TestNewEvalError 测试错误码与令牌的固定配对
func TestNewEvalError(t *testing.T) {
	e := NewEvalError(CodeDivByZero, "1/0")
	if e.Token != TokenDivByZero {
		t.Errorf("DIV_BY_ZERO token = %q, want %q", e.Token, TokenDivByZero)
	}
	if e.Message != "1/0" {
		t.Errorf("message = %q, want 1/0", e.Message)
	}
}
