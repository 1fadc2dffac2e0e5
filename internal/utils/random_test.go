package utils

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestGenerateUsernameFromChineseName(t *testing.T) {
	username := GenerateUsernameFromChineseName("张三丰")
	if username == "" {
		t.Fatal("用户名不应为空")
	}
	for _, r := range username {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			t.Fatalf("用户名 %q 含有非法字符 %q", username, r)
		}
	}
}

func TestGenerateRandomPassword(t *testing.T) {
	password := GenerateRandomPassword(12)
	if len(password) != 12 {
		t.Fatalf("len(password) = %d, want 12", len(password))
	}
	for _, r := range password {
		if !strings.ContainsRune(passwordCharacters, r) {
			t.Fatalf("密码 %q 含有非法字符 %q", password, r)
		}
	}
}

func TestGenerateRandomOTP(t *testing.T) {
	otp := GenerateRandomOTP()
	if len(otp) != 6 {
		t.Fatalf("len(otp) = %d, want 6", len(otp))
	}
	for _, r := range otp {
		if r < '0' || r > '9' {
			t.Fatalf("验证码 %q 应全为数字", otp)
		}
	}
}

func TestGenerateRandomManager(t *testing.T) {
	user, err := GenerateRandomManager("plain-password", "example.com")
	if err != nil {
		t.Fatalf("GenerateRandomManager: %v", err)
	}

	if user.Username == "" || user.FullName == "" || user.Department == "" {
		t.Fatalf("生成的经理信息不完整: %+v", user)
	}
	if !strings.HasSuffix(user.Email, "@example.com") {
		t.Fatalf("Email = %q, want 以 @example.com 结尾", user.Email)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("plain-password")); err != nil {
		t.Fatalf("密码哈希校验失败: %v", err)
	}
}
