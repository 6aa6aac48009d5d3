package sqlinline

const QInsertDonation = `--sql 9b79c57c-3615-48a2-9d85-3426d5b3f7eb
insert into donations(campaign_id, seq, donor, amount, message, created_at)
values ($1::bigint, $2::bigint, $3::text, $4::text::numeric, $5::text, $6::timestamptz);
`

const QListDonations = `--sql 7a08e4f6-cb8a-42c4-bd7f-291d6e913edc
select campaign_id, seq, donor, amount::text, message, created_at
from donations
order by campaign_id, seq;
`

const QInsertDonor = `--sql 290487f6-4cd4-40d9-85d7-3079c9a2db8c
insert into campaign_donors(campaign_id, position, donor)
select $1::bigint, coalesce(max(position), 0) + 1, $2::text
from campaign_donors
where campaign_id = $1::bigint;
`

const QListDonors = `--sql e9098033-fad7-407a-b21a-be4fbc447957
select campaign_id, donor
from campaign_donors
order by campaign_id, position;
`
