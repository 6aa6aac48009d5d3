package sqlinline

const QSelectAdmin = `--sql 7162b06d-6105-44df-be43-4bec72a0b991
select value from ledger_meta where key = 'admin';
`

const QUpsertAdmin = `--sql d31b49fe-0f45-4e7b-b0eb-8909068e6fee
insert into ledger_meta(key, value)
values ('admin', $1::text)
on conflict (key) do update set value = excluded.value;
`

const QInsertCampaign = `--sql bbdcdfe3-c86b-4d3a-b42a-d0a31336209d
insert into campaigns(id, title, beneficiary, balance, total_donations, active, created_at)
values ($1::bigint, $2::text, $3::text, $4::text::numeric, $5::text::numeric, $6::boolean, $7::timestamptz);
`

const QUpdateCampaign = `--sql 56a219e8-aefd-4405-bc2c-e98903dcb71b
update campaigns
set title = $2::text,
    beneficiary = $3::text,
    balance = $4::text::numeric,
    total_donations = $5::text::numeric,
    active = $6::boolean
where id = $1::bigint;
`

const QListCampaigns = `--sql f2bea7dc-e8b5-4bc5-9a9a-912d74ed0217
select id, title, beneficiary, balance::text, total_donations::text, active, created_at
from campaigns
order by id;
`
