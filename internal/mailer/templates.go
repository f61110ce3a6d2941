package mailer

import "fmt"

// The platform is Arabic-first; mail copy is RTL Arabic like the web UI.

func OTPEmail(name, otp string) (subject, body string) {
	subject = "رمز التحقق الخاص بك"
	body = fmt.Sprintf(`<div dir="rtl" style="font-family: Tahoma, Arial, sans-serif;">
<h2>مرحباً %s،</h2>
<p>رمز التحقق الخاص بك هو:</p>
<p style="font-size: 28px; font-weight: bold; letter-spacing: 6px;">%s</p>
<p>هذا الرمز صالح لمدة 10 دقائق.</p>
</div>`, name, otp)
	return subject, body
}

func ResetPasswordEmail(name, resetURL string) (subject, body string) {
	subject = "إعادة تعيين كلمة المرور"
	body = fmt.Sprintf(`<div dir="rtl" style="font-family: Tahoma, Arial, sans-serif;">
<h2>مرحباً %s،</h2>
<p>لإعادة تعيين كلمة المرور الخاصة بك، اضغط على الرابط التالي:</p>
<p><a href="%s">إعادة تعيين كلمة المرور</a></p>
<p>الرابط صالح لمدة ساعة واحدة. إذا لم تطلب إعادة التعيين فتجاهل هذه الرسالة.</p>
</div>`, name, resetURL)
	return subject, body
}
