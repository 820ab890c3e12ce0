package notify

const reminderText = `Hello {{ recipient }},

{{ if test }}This is a test reminder.

{{ end }}The agreement "{{ agreement.Title }}" ({{ agreement.Code }}) expires on {{ agreement.ExpiryDate }}.
{{ if agreement.DaysRemaining > 0 }}{{ agreement.DaysRemaining }} day(s) remaining.{{ else }}It expires today.{{ end }}

Vendor: {{ agreement.VendorName }}
Department: {{ agreement.DepartmentName }}
{{ if agreement.Reference != "" }}Reference: {{ agreement.Reference }}
{{ end }}Reminder date: {{ agreement.ReminderDate }}
`

const reminderHTML = `<html>
<body>
<p>Hello {{ recipient }},</p>
{{ if test }}<p><strong>This is a test reminder.</strong></p>{{ end }}
<p>The agreement <strong>{{ agreement.Title }}</strong> ({{ agreement.Code }}) expires on {{ agreement.ExpiryDate }}.</p>
{{ if agreement.DaysRemaining > 0 }}<p>{{ agreement.DaysRemaining }} day(s) remaining.</p>{{ else }}<p>It expires today.</p>{{ end }}
<table>
<tr><td>Vendor</td><td>{{ agreement.VendorName }}</td></tr>
<tr><td>Department</td><td>{{ agreement.DepartmentName }}</td></tr>
{{ if agreement.Reference != "" }}<tr><td>Reference</td><td>{{ agreement.Reference }}</td></tr>{{ end }}
<tr><td>Reminder date</td><td>{{ agreement.ReminderDate }}</td></tr>
</table>
</body>
</html>
`

const notificationText = `The agreement "{{ agreement.Title }}" ({{ agreement.Code }}) was {{ action }}.

Vendor: {{ agreement.VendorName }}
Department: {{ agreement.DepartmentName }}
{{ if agreement.Reference != "" }}Reference: {{ agreement.Reference }}
{{ end }}Start date: {{ agreement.StartDate }}
Expiry date: {{ agreement.ExpiryDate }}
Reminder date: {{ agreement.ReminderDate }}
`

const notificationHTML = `<html>
<body>
<p>The agreement <strong>{{ agreement.Title }}</strong> ({{ agreement.Code }}) was {{ action }}.</p>
<table>
<tr><td>Vendor</td><td>{{ agreement.VendorName }}</td></tr>
<tr><td>Department</td><td>{{ agreement.DepartmentName }}</td></tr>
{{ if agreement.Reference != "" }}<tr><td>Reference</td><td>{{ agreement.Reference }}</td></tr>{{ end }}
<tr><td>Start date</td><td>{{ agreement.StartDate }}</td></tr>
<tr><td>Expiry date</td><td>{{ agreement.ExpiryDate }}</td></tr>
<tr><td>Reminder date</td><td>{{ agreement.ReminderDate }}</td></tr>
</table>
</body>
</html>
`
